// Package fixtures 提供测试用的 campaign、candidate 与邮件样例。
package fixtures

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/recruitflow/integrations/mail"
	"github.com/BaSui01/recruitflow/internal/store"
)

// Campaign 返回一个未保存的样例 campaign
func Campaign() *store.Campaign {
	return &store.Campaign{
		Name:                  "Q1-Backend",
		JobDescriptionSummary: "Senior Backend Engineer, Go and Postgres, fintech",
		MarketResearch:        "Go engineers with payments experience are in demand.",
		Keywords:              "Senior Go Engineer fintech, Backend Engineer payments Postgres",
	}
}

// Candidates 按名字生成候选人，邮箱为小写名字加 @example.com
func Candidates(names ...string) []store.Candidate {
	out := make([]store.Candidate, len(names))
	for i, n := range names {
		slug := strings.ToLower(strings.ReplaceAll(n, " ", "-"))
		out[i] = store.Candidate{
			Name:       n,
			Email:      slug + "@example.com",
			ProfileURL: "https://www.linkedin.com/in/" + slug,
			Title:      "Backend Engineer",
			Company:    "Acme",
		}
	}
	return out
}

// SeedCampaign 保存样例 campaign 与候选人
func SeedCampaign(t *testing.T, st store.Store, names ...string) (*store.Campaign, []store.Candidate) {
	t.Helper()
	campaign := Campaign()
	cands := Candidates(names...)
	require.NoError(t, st.CreateCampaign(context.Background(), campaign, cands))
	return campaign, cands
}

// SeedAgent 为候选人创建 agent
func SeedAgent(t *testing.T, st store.Store, cand store.Candidate, mailbox string) *store.Agent {
	t.Helper()
	agent := &store.Agent{
		CampaignID:   cand.CampaignID,
		CandidateID:  cand.ID,
		MailboxEmail: mailbox,
		MailboxID:    mailbox,
	}
	require.NoError(t, st.CreateAgent(context.Background(), agent))
	return agent
}

// Inbound 返回一条候选人发来的邮件
func Inbound(inboxID, threadID, messageID, from, text string) mail.Message {
	return mail.Message{
		MessageID: messageID,
		ThreadID:  threadID,
		InboxID:   inboxID,
		From:      from,
		To:        []string{inboxID},
		Subject:   "Re: opportunity",
		Text:      text,
		CreatedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}
