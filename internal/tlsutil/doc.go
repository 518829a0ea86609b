// Package tlsutil 为各外部服务客户端（邮件、搜索、补全、日历、LLM）
// 提供统一的安全加固 HTTP 传输层。
package tlsutil
