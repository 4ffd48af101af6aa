package cfg

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		AccessToken       string
		ApiUrl            string
		ApiVersion        string
		RequestsPerSecond int
		ThrottleDelay     int
		RateLimitResetMin int
	}

	KafkaTopics struct {
		Immediate string
		Soon      string
		Normal    string
		Later     string
	}

	Kafka struct {
		Brokers       []string
		Topics        KafkaTopics
		ConsumerGroup string
	}

	Crawler struct {
		SeedUrl         string
		SeedType        string
		Workers         int
		CacheTtlSeconds int
		UiPort          int
	}
)

type Config struct {
	App       App
	Mysql     Mysql
	GithubApi GithubApi
	Kafka     Kafka
	Crawler   Crawler
}
