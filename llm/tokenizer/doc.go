// Package tokenizer 为会话上下文提供 Token 计数与按预算裁剪，
// 优先使用 tiktoken，BPE 表不可用时回落到字符估算器。
package tokenizer
