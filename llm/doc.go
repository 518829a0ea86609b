// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义文本生成的最小抽象 [Generator]：一条提示词进，一段补全出。

# 概述

流水线的职位摘要与关键词提取、激活阶段的首封邮件、会话回复以及知识问答
都只依赖 [Generator]，不关心背后是哪家模型服务。

# 子包

  - factory：按 llm.provider 创建生成器并套上熔断
  - providers/openaicompat：OpenAI 兼容的 chat completions 客户端
  - providers/gemini：基于 google.golang.org/genai 的 Gemini 客户端
  - circuitbreaker：连续失败后短路调用，返回 SERVICE_UNAVAILABLE
  - retry：指数退避重试，仅重试可重试的上游错误
  - tokenizer：会话上下文的 Token 计数与裁剪

# 工具函数

[ExtractJSONObject] 从模型输出中截取第一个完整的 JSON 对象，
兼容模型在 JSON 外包裹说明文字或代码块的情况。
*/
package llm
