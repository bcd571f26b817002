package config

type AppConfig struct {
	Server  ServerConfig
	Log     LogConfig
	Match   MatchConfig
	History HistoryConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	matchCfg, err := LoadMatch()
	if err != nil {
		return AppConfig{}, err
	}
	historyCfg, err := LoadHistory()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Log:     logCfg,
		Match:   matchCfg,
		History: historyCfg,
	}, nil
}
