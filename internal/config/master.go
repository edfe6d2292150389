package config

type AppConfig struct {
	DebugMode      bool
	ServiceName    string
	HttpCfg        *HttpCfg
	GatewayCfg     *GatewayCfg
	JudgeQueueCfg  *JudgeQueueCfg
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	FileLinkCfg    *FileLinkCfg
	TracingCfg     *TracingCfg
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      getBoolEnv("DEBUG_MODE", false),
		ServiceName:    getEnv("SERVICE_NAME", "judgeDispatch"),
		HttpCfg:        NewHttpCfg(),
		GatewayCfg:     NewGatewayCfg(),
		JudgeQueueCfg:  NewJudgeQueueCfg(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		FileLinkCfg:    NewFileLinkCfg(),
		TracingCfg:     NewTracingCfg(),
	}
}
