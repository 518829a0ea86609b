// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 封装 go-redis 客户端，为招聘流水线与外联会话提供
研究结果缓存、Webhook 去重标记与激活分布式锁。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/Set/Delete、GetJSON/SetJSON、
    MarkOnce（SETNX 去重）与 Lock（带令牌的互斥锁）。
  - Config：地址、密码、连接池、默认 TTL 与键前缀。

# 使用约定

Redis 未配置时服务不创建 Manager，上层组件把 nil 依赖视为
“去重/加锁关闭”，仅依赖数据库唯一索引兜底。
*/
package cache
