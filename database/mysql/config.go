package mysql

// Config represent root of mysql config
type Config struct {
	Master   connection   `json:"master" yaml:"master"`
	Slaves   []connection `json:"slaves" yaml:"slaves"`
	ConnCfg  connCfg      `json:"conn_cfg" yaml:"conn_cfg"`
	LogLevel int          `json:"log_level" yaml:"log_level"`
}

type connection struct {
	Host     string `json:"host" yaml:"host"`
	Port     uint   `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
}

type connCfg struct {
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`
}
