package scene

type InvalidConfigError string

func (e InvalidConfigError) Error() string { return "invalid config: " + string(e) }
