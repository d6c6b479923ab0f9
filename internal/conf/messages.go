package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/server"
)

// MessagesConfig contains reply templates and prompts loaded from YAML
type MessagesConfig struct {
	Admin     AdminMessages     `yaml:"admin"`
	Commands  CommandMessages   `yaml:"commands"`
	Recommend RecommendMessages `yaml:"recommend"`
}

// AdminMessages are the replies to set-convention
type AdminMessages struct {
	Created  string `yaml:"created"`
	Updated  string `yaml:"updated"`
	Deleted  string `yaml:"deleted"`
	NotFound string `yaml:"not_found"`
	Invalid  string `yaml:"invalid"`
}

// CommandMessages are the replies to the other chat commands
type CommandMessages struct {
	Usage           string `yaml:"usage"`
	GroupOnly       string `yaml:"group_only"`
	ShowConvention  string `yaml:"show_convention"`
	NoConvention    string `yaml:"no_convention"`
	ReconcileQueued string `yaml:"reconcile_queued"`
	ReconcileFailed string `yaml:"reconcile_failed"`
	Recommendation  string `yaml:"recommendation"`
	InternalError   string `yaml:"internal_error"`
}

// RecommendMessages are the recommender model prompts
type RecommendMessages struct {
	SystemPrompt string `yaml:"system_prompt"`
	UserTemplate string `yaml:"user_template"`
}

// LoadMessagesConfig loads messages from a YAML file.
// With an empty path the usual locations are tried and defaults are used
// when none exists; an explicit path must exist.
func LoadMessagesConfig(configPath string) (*MessagesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/messages.yaml",
			"/etc/feishu-invitor/messages.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "messages.yaml"))
		}
	}

	logger := log.WithPrefix("Config")

	var raw []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			raw, loadedPath = b, p
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("read messages config: %w", err)
		}
	}

	if raw == nil {
		logger.Debug("No messages.yaml found, using defaults")
		return DefaultMessagesConfig(), nil
	}

	logger.Info("Loading messages", "path", loadedPath)

	var config MessagesConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *MessagesConfig) fillDefaults() {
	d := DefaultMessagesConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}

	fill(&c.Admin.Created, d.Admin.Created)
	fill(&c.Admin.Updated, d.Admin.Updated)
	fill(&c.Admin.Deleted, d.Admin.Deleted)
	fill(&c.Admin.NotFound, d.Admin.NotFound)
	fill(&c.Admin.Invalid, d.Admin.Invalid)

	fill(&c.Commands.Usage, d.Commands.Usage)
	fill(&c.Commands.GroupOnly, d.Commands.GroupOnly)
	fill(&c.Commands.ShowConvention, d.Commands.ShowConvention)
	fill(&c.Commands.NoConvention, d.Commands.NoConvention)
	fill(&c.Commands.ReconcileQueued, d.Commands.ReconcileQueued)
	fill(&c.Commands.ReconcileFailed, d.Commands.ReconcileFailed)
	fill(&c.Commands.Recommendation, d.Commands.Recommendation)
	fill(&c.Commands.InternalError, d.Commands.InternalError)

	fill(&c.Recommend.SystemPrompt, d.Recommend.SystemPrompt)
	fill(&c.Recommend.UserTemplate, d.Recommend.UserTemplate)
}

// DefaultMessagesConfig returns the built-in messages
func DefaultMessagesConfig() *MessagesConfig {
	a := usecase.DefaultAdminMessages
	cm := server.DefaultCommandMessages
	return &MessagesConfig{
		Admin: AdminMessages{
			Created:  a.Created,
			Updated:  a.Updated,
			Deleted:  a.Deleted,
			NotFound: a.NotFound,
			Invalid:  a.Invalid,
		},
		Commands: CommandMessages{
			Usage:           cm.Usage,
			GroupOnly:       cm.GroupOnly,
			ShowConvention:  cm.ShowConvention,
			NoConvention:    cm.NoConvention,
			ReconcileQueued: cm.ReconcileQueued,
			ReconcileFailed: cm.ReconcileFailed,
			Recommendation:  cm.Recommendation,
			InternalError:   cm.InternalError,
		},
		Recommend: RecommendMessages{
			SystemPrompt: `You name membership conventions for Feishu group chats.
A convention is one word without spaces. "*" matches any run of characters.
Members whose display name matches the convention are invited to the chat.
Prefer a lowercase prefix followed by "*", e.g. "2025_capstone_*".
Stay consistent with the conventions already in use.
Reply with the convention only, no explanation.`,
			UserTemplate: `Chat name: {channel_name}
Conventions already in use:
{existing}`,
		},
	}
}

// ToAdminMessages converts to usecase admin messages
func (c *MessagesConfig) ToAdminMessages() usecase.AdminMessages {
	return usecase.AdminMessages{
		Created:  c.Admin.Created,
		Updated:  c.Admin.Updated,
		Deleted:  c.Admin.Deleted,
		NotFound: c.Admin.NotFound,
		Invalid:  c.Admin.Invalid,
	}
}

// ToCommandMessages converts to server command messages
func (c *MessagesConfig) ToCommandMessages() server.CommandMessages {
	return server.CommandMessages{
		Usage:           c.Commands.Usage,
		GroupOnly:       c.Commands.GroupOnly,
		ShowConvention:  c.Commands.ShowConvention,
		NoConvention:    c.Commands.NoConvention,
		ReconcileQueued: c.Commands.ReconcileQueued,
		ReconcileFailed: c.Commands.ReconcileFailed,
		Recommendation:  c.Commands.Recommendation,
		InternalError:   c.Commands.InternalError,
	}
}

// ToRecommendPrompts converts to recommender prompts
func (c *MessagesConfig) ToRecommendPrompts() data.RecommendPrompts {
	return data.RecommendPrompts{
		System: c.Recommend.SystemPrompt,
		User:   c.Recommend.UserTemplate,
	}
}
