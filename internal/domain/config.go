package domain

// PollingConfig is the backend's /config/polling payload, in seconds.
// Zero means the backend did not provide the value.
type PollingConfig struct {
	DefaultInterval  int `json:"default_interval,omitempty"`
	PipelineInterval int `json:"pipeline_interval,omitempty"`
	JobInterval      int `json:"job_interval,omitempty"`
	LogInterval      int `json:"log_interval,omitempty"`
	WorkflowInterval int `json:"workflow_interval,omitempty"`
}

// AppConfig is the sanitized application configuration served by /config/app.
type AppConfig struct {
	Services struct {
		GitLabURL string `json:"gitlab_url,omitempty"`
		LLMModel  string `json:"llm_model,omitempty"`
		GRPCPort  int    `json:"grpc_port,omitempty"`
	} `json:"services"`
	RetryConfig struct {
		RetryIntervalTime int `json:"retry_interval_time,omitempty"`
		RetryMaxTime      int `json:"retry_max_time,omitempty"`
		DebugMaxTime      int `json:"debug_max_time,omitempty"`
		TotalTimeout      int `json:"total_timeout,omitempty"`
	} `json:"retry_config"`
}
