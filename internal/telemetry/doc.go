// Package telemetry 封装 OpenTelemetry SDK 初始化，并为流水线阶段、
// 外部服务调用提供统一的 span 辅助函数。禁用时全局 provider 保持 noop。
package telemetry
