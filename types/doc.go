// Copyright (c) recruitflow Authors.
// Licensed under the MIT License.

/*
Package types 提供 recruitflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 pipeline、activation、
conversation、meeting 与 api 等上层模块提供统一的错误与状态契约。

# 核心类型

  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - ActivationStatus：活动外联状态（not_started / running / paused）
  - AgentStatus：候选人代理会话状态（active / scheduling / completed / stopped）
  - StopReason：代理停止原因（safe_word / rejected / accepted / manual）
  - MeetingStatus：会议生命周期（pending → active → completed，单向）

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 常用错误构造：NotFound / InvalidRequest / Upstream
  - 状态校验：Valid / Terminal / CanTransitionTo
*/
package types
