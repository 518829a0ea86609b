/*
Package handlers 提供 recruitflow HTTP API 的请求处理器实现。

# 概述

所有 Handler 均遵循标准 net/http 接口，依赖以小接口注入，
便于在测试中替换为 testutil/mocks 中的实现。失败响应统一为
{"error": "<message>"}，状态码由 types.Error.Status 决定。

# 核心类型

  - PipelineHandler：流水线运行，SSE 与 WebSocket 两种进度传输
  - CampaignHandler：活动查询、激活、暂停/恢复、邮件线程与会议列表
  - WebhookHandler：AgentMail 入站邮件回调
  - MeetingHandler：候选人接受与会议生命周期
  - KnowledgeHandler：基于活动上下文的问答
  - HealthHandler：服务健康检查（/health, /healthz, /ready, /version）

# 主要能力

  - 统一响应格式：WriteJSON / WriteError / WriteServiceError
  - 请求验证：DecodeJSONBody（1 MB 限制）、ValidateContentType
  - 流式输出：每帧立即 Flush，客户端断开不影响流水线继续运行
  - 可扩展健康检查：RegisterCheck 注册 NewCheck 创建的检查
*/
package handlers
