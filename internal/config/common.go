package config

// Config 配置主体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Trigger    TriggerConsumer  `mapstructure:"kafka_trigger_consumer"`
	Targeting  TargetingConfig  `mapstructure:"targeting"`
	Intel      IntelConfig      `mapstructure:"intel"`
	Outreach   OutreachConfig   `mapstructure:"outreach"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	Content    ContentConfig    `mapstructure:"content"`
	Safety     SafetyConfig     `mapstructure:"safety"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Env             string `mapstructure:"env"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogConfig 日志配置，SinkAddr 为空时仅输出到 stdout
type LogConfig struct {
	SinkAddr string `mapstructure:"sink_addr"`
	Index    string `mapstructure:"index"`
	Token    string `mapstructure:"token"`
}

type LLMConfig struct {
	URL       string `mapstructure:"url"`
	TextModel string `mapstructure:"text_model"`
	ApiKey    string `mapstructure:"api_key"`
}

// BrowserConfig 无头浏览器抓取配置
type BrowserConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	WaitMS    int    `mapstructure:"wait_ms"`
	Proxy     string `mapstructure:"proxy"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type TriggerConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// IntelConfig 创作者画像巡检配置，NicheKeywords 为空时使用内置词表
type IntelConfig struct {
	LimitCreators  int      `mapstructure:"limit_creators"`
	SimilarityTopK int      `mapstructure:"similarity_top_k"`
	PostsToScan    int      `mapstructure:"posts_to_scan"`
	NicheKeywords  []string `mapstructure:"niche_keywords"`
}

// OutreachConfig 外联批次配置
type OutreachConfig struct {
	BatchSize      int    `mapstructure:"batch_size"`
	CampaignName   string `mapstructure:"campaign_name"`
	OfferType      string `mapstructure:"offer_type"`
	FraudScoreMax  int    `mapstructure:"fraud_score_max"`
	SignerName     string `mapstructure:"signer_name"`
	BrandBlurbName string `mapstructure:"brand_name"`
}

// EngagementConfig 互动队列配置
type EngagementConfig struct {
	QueueLimit    int `mapstructure:"queue_limit"`
	PerHour       int `mapstructure:"per_hour"`
	JitterMinutes int `mapstructure:"jitter_minutes"`
}

// ContentConfig 内容选题配置
type ContentConfig struct {
	RSSFeeds      []string `mapstructure:"rss_feeds"`
	HTMLSources   []string `mapstructure:"html_sources"`
	MaxPagesTotal int      `mapstructure:"max_pages_total"`
	IdeasPerDay   int      `mapstructure:"ideas_per_day"`
}

// SafetyConfig 行为护栏配置
type SafetyConfig struct {
	KillSwitch        bool   `mapstructure:"kill_switch"`
	ActionMode        string `mapstructure:"action_mode"`
	MaxActionsPerHour int    `mapstructure:"max_actions_per_hour"`
}
