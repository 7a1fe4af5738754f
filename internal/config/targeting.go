package config

import (
	"github.com/go-playground/validator/v10"
)

// 发现管道的兜底默认值，配置缺失或非法时回退到这里
const (
	DefaultFollowerMin      = 2000
	DefaultFollowerMax      = 80000
	DefaultHardMaxFollowers = 250000
	DefaultPerSeedPosts     = 60
	DefaultMaxTotalHandles  = 500
	DefaultMaxConcurrency   = 6
	DefaultOversample       = 3
	DefaultExpandSeedCount  = 10
)

// TargetingConfig 发现与过滤的目标画像配置
type TargetingConfig struct {
	SeedHashtags []string `mapstructure:"seed_hashtags"`
	TargetNiches []string `mapstructure:"target_niches"`

	FollowerMin      int `mapstructure:"follower_min" validate:"min=1"`
	FollowerMax      int `mapstructure:"follower_max" validate:"gtefield=FollowerMin"`
	HardMaxFollowers int `mapstructure:"hard_max_followers" validate:"gtefield=FollowerMax"`

	PerSeedPosts    int `mapstructure:"per_seed_posts" validate:"min=1"`
	MaxTotalHandles int `mapstructure:"max_total_handles" validate:"min=1"`
	MaxConcurrency  int `mapstructure:"max_concurrency" validate:"min=1,max=32"`
	Oversample      int `mapstructure:"oversample" validate:"min=1"`

	Expand  ExpandConfig  `mapstructure:"expand"`
	Exclude ExcludeConfig `mapstructure:"exclude"`
}

// ExpandConfig 相关扩散（以现有优质创作者为种子）的配置
type ExpandConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	SeedCount      int  `mapstructure:"seed_count" validate:"min=1"`
	PerSeedPosts   int  `mapstructure:"per_seed_posts" validate:"min=1"`
	MaxConcurrency int  `mapstructure:"max_concurrency" validate:"min=1,max=32"`
}

// ExcludeConfig 子串排除规则
type ExcludeConfig struct {
	HandleContains []string `mapstructure:"handle_contains"`
	TextContains   []string `mapstructure:"text_contains"`
}

// ApplyDefaults 将缺失或非法的数值字段回退到命名默认值
func (c *TargetingConfig) ApplyDefaults() {
	if c.FollowerMin <= 0 {
		c.FollowerMin = DefaultFollowerMin
	}
	if c.FollowerMax <= 0 {
		c.FollowerMax = DefaultFollowerMax
	}
	if c.HardMaxFollowers <= 0 {
		c.HardMaxFollowers = DefaultHardMaxFollowers
	}
	if c.PerSeedPosts <= 0 {
		c.PerSeedPosts = DefaultPerSeedPosts
	}
	if c.MaxTotalHandles <= 0 {
		c.MaxTotalHandles = DefaultMaxTotalHandles
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Oversample <= 0 {
		c.Oversample = DefaultOversample
	}
	if c.Expand.SeedCount <= 0 {
		c.Expand.SeedCount = DefaultExpandSeedCount
	}
	if c.Expand.PerSeedPosts <= 0 {
		c.Expand.PerSeedPosts = DefaultPerSeedPosts
	}
	if c.Expand.MaxConcurrency <= 0 {
		c.Expand.MaxConcurrency = c.MaxConcurrency
	}
}

// Validate 校验跨字段约束，加载时一次性拒绝非法组合
func (c *TargetingConfig) Validate() error {
	return validator.New().Struct(c)
}
