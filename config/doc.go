// Package config 提供 recruitflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 RECRUITFLOW_）的顺序叠加，
// 覆盖服务器、数据库、Redis、日志、遥测、流水线、LLM 与外部集成等分区。
package config
