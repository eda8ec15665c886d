package rate

const (
	loginUserPrefix = "tg:rl:login:"
	loginIPPrefix   = "tg:rl:login-ip:"
	renewPrefix     = "tg:rl:renew:"
)

func loginUserKey(identifier string) string { return loginUserPrefix + identifier }

func loginIPKey(ip string) string { return loginIPPrefix + ip }

func renewKey(identifier string) string { return renewPrefix + identifier }
