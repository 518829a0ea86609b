// Package factory 提供 llm.Generator 的集中式工厂，
// 按 llm.provider 配置创建 openai 兼容或 gemini 生成器，避免 llm 包直接依赖各 provider 子包。
package factory
