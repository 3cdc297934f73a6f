package rig

import (
	"github.com/ardufsm/rigd/rigdb"
	"github.com/ardufsm/rigd/riglog"
	"github.com/juju/clock"
)

type Config struct {
	DB     *rigdb.DB
	Api    Api
	RigLog *riglog.RigLog
	Clock  clock.Clock
	Logger Logger
}
