package context

type Key string

const (
	Claims    Key = "claims"
	AccessKey Key = "access_key"
	Params    Key = "params"
)
