// Copyright 2026 recruitflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 recruitflow 测试的共享工具。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: 内存 Store、MockMailer、MockGenerator、MockScheduler，
    均支持 Builder 模式与错误注入
  - testutil/fixtures: 预置 campaign、candidate 与 AgentMail 消息样例

# 使用示例

	ctx := testutil.TestContext(t)
	st := mocks.NewMemoryStore()
	campaign, cands := fixtures.SeedCampaign(t, st, "Ada", "Grace")
*/
package testutil
