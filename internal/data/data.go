package data

import (
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/llm"
)

// Options configures NewRepositories
type Options struct {
	DBPath        string
	StorePageSize int
	Membership    MembershipConfig
	Prompts       RecommendPrompts
}

// Repositories contains all repositories
type Repositories struct {
	Convention repo.ConventionRepo
	Membership repo.MembershipRepo
	ChatInfo   repo.ChatInfoRepo
	Recommend  repo.RecommendRepo // nil when no LLM is configured
}

// NewRepositories creates all repositories
func NewRepositories(feishuClient *feishu.Client, llmClient *llm.Client, opts Options) (*Repositories, error) {
	conventionRepo, err := NewConventionRepo(opts.DBPath, opts.StorePageSize)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Convention: conventionRepo,
		Membership: NewMembershipRepo(feishuClient, opts.Membership),
		ChatInfo:   NewChatInfoRepo(feishuClient),
	}
	if llmClient != nil {
		repos.Recommend = NewRecommendRepo(llmClient, opts.Prompts)
	}
	return repos, nil
}

// Close releases the repositories' resources
func (r *Repositories) Close() error {
	return r.Convention.Close()
}
