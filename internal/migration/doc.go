// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 recruitflow 的数据库 Schema（campaigns、candidates、
agents、meetings 四张表），基于 golang-migrate 与内嵌 SQL 文件，
支持 PostgreSQL、MySQL 与 SQLite（modernc 纯 Go 驱动）。

# 核心类型

  - Migrator / DefaultMigrator：Up、Down、DownAll、Goto、Force、
    Version、Status、Info。
  - CLI：`recruitflow migrate` 子命令的终端输出层。

agents 表上的 (campaign_id, candidate_id) 与 mailbox_id 唯一索引
是激活并发安全与 Webhook 路由的基础，任何后续迁移不得移除。
*/
package migration
