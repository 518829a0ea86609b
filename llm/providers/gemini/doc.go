// Copyright 2026 recruitflow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 基于官方 SDK google.golang.org/genai 实现 llm.Generator，
用于首封邮件与会话回复的文本生成。

# 核心结构体

  - Provider：持有 genai.Client 与重试器，Generate 发送单条用户消息并返回文本

# 错误语义

genai.APIError 按状态码映射为 UPSTREAM_ERROR（429/5xx 可重试），
网络超时映射为 UPSTREAM_TIMEOUT。
*/
package gemini
