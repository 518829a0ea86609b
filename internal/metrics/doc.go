// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、招聘流水线、
外联激活、会话状态机、会议与缓存几个维度。

# 核心类型

  - Collector：指标收集器，按业务域分组持有 Counter / Histogram 向量，
    通过 promauto.With 注册到调用方给定的 Registerer。

# 主要能力

  - HTTP 指标：请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 流水线指标：运行结果、阶段耗时、搜索查询结果、候选人数量、邮箱补全结果。
  - 外联指标：代理创建、首封邮件、Webhook 决策、会议迁移。
  - 缓存指标：命中与未命中计数。
*/
package metrics
