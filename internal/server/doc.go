// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理：非阻塞启动、优雅关闭与系统信号监听。

# 核心类型

  - Manager：按名称标识的 http.Server 管理器（API 与 metrics 各一个），
    提供 Start / Shutdown / Errors / ListenAddr / IsRunning。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时。

# 主要能力

  - 非阻塞启动：Start 先完成监听再在后台 goroutine 中 Serve，端口占用
    等错误同步返回。
  - 信号监听：WaitForSignal 在 SIGINT/SIGTERM、ctx 结束或任一 Manager
    异步出错时返回，由调用方执行关闭。
  - 写超时：SSE 请求通过 http.ResponseController 自行清除写超时，
    Config.WriteTimeout 只约束普通请求。
*/
package server
