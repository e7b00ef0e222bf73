package jsoncodec

import (
	"github.com/bytedance/sonic"
)

// ConfigStd sorts map keys, so equal values always encode to equal strings.
var defaultConfig = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalString(v interface{}) (string, error) {
	return defaultConfig.MarshalToString(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return defaultConfig.Unmarshal(data, v)
}
