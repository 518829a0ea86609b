// 版权所有 2024 recruitflow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 store 是 campaigns、candidates、agents、meetings 四类记录的
持久化层，基于 GORM 与 internal/database 的连接池管理器。

流水线只在存储阶段调用 CreateCampaign（单事务写入活动与全部候选人）；
激活、会话状态机与会议服务通过 Store 接口读写代理与会议状态。
查找未命中返回 NOT_FOUND，唯一约束冲突返回 CONFLICT，其余失败返回
STORAGE_ERROR，均为 *types.Error。
*/
package store
