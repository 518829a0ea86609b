// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库打开与连接池管理，支持健康检查
与事务重试。

# 概述

Open 根据配置选择 postgres / mysql / sqlite 方言（sqlite 使用纯 Go 的
modernc 驱动），并返回 PoolManager。PoolManager 统一管理连接生命周期、
后台探活与事务执行。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、Close()。
  - PoolConfig：连接池配置。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - 事务管理：WithTransaction / WithTransactionRetry（死锁、序列化失败、
    SQLITE_BUSY 等瞬时错误指数退避重试）。
  - 错误分类：IsRetryableError / IsDuplicateKey。
*/
package database
