package rig

import "net"

type Api interface {
	SetRig(r *Rig)
	Serve(l net.Listener) error
}
