package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (yl *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:    "github-graph-crawler",
			Version: "0.0.1",
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "github_graph_crawler",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// GithubApi
		GithubApi: GithubApi{
			AccessToken:       "",
			ApiUrl:            "https://api.github.com",
			ApiVersion:        "2022-11-28",
			RequestsPerSecond: 10,
			ThrottleDelay:     200,
			RateLimitResetMin: 5,
		},

		// Kafka
		Kafka: Kafka{
			Brokers: []string{"127.0.0.1:9092"},
			Topics: KafkaTopics{
				Immediate: "crawl-immediate",
				Soon:      "crawl-soon",
				Normal:    "crawl-normal",
				Later:     "crawl-later",
			},
			ConsumerGroup: "crawler-group",
		},

		// Crawler
		Crawler: Crawler{
			SeedUrl:         "https://api.github.com/orgs",
			SeedType:        "orgs",
			Workers:         10,
			CacheTtlSeconds: 60,
			UiPort:          8088,
		},
	}, nil
}
