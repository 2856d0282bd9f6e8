package app

import (
	"go.uber.org/zap"

	"github.com/Blackdeer1524/ISAMStore/src"
	"github.com/Blackdeer1524/ISAMStore/src/cfg"
)

func NewLogger(env cfg.Environment) (src.Logger, error) {
	if env == cfg.EnvDev {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return log.Sugar(), nil
	}

	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}
