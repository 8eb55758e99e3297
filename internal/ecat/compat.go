package ecat

import "sync"

// defaultPort is the process-wide port the compatibility wrappers below
// operate on. It mirrors the legacy EC_VER1 global-singleton layer in the
// driver this core is descended from: every ecx_* operation has an ec_*
// counterpart that threads a single global port through instead of an
// explicit one. New code should hold and pass its own *Port; this layer
// exists only for callers that want the older single-master-per-process
// shape.
var (
	defaultPortOnce sync.Once
	defaultPort     *Port
)

// Default returns the process-wide port, constructing it on first use.
func Default() *Port {
	defaultPortOnce.Do(func() {
		defaultPort = NewPort()
	})
	return defaultPort
}

func SetupNIC(ifname string, secondary bool, opts ...Option) error {
	return Default().SetupNIC(ifname, secondary, opts...)
}

func CloseNIC() error {
	return Default().CloseNIC()
}

func GetIndex() int {
	return Default().GetIndex()
}

func SetBufStat(idx int, state SlotState) {
	Default().SetBufStat(idx, state)
}

func OutFrame(idx int, sel Direction) (int, error) {
	return Default().OutFrame(idx, sel)
}

func OutFrameRed(idx int) (int, error) {
	return Default().OutFrameRed(idx)
}

func InFrame(idx int, sel Direction) int {
	return Default().InFrame(idx, sel)
}

func WaitInFrame(idx int, timeoutUs int) int {
	return Default().WaitInFrame(idx, timeoutUs)
}

func WaitInFrameRed(idx int, timeoutUs int) int {
	return Default().WaitInFrameRed(idx, timeoutUs)
}

func SrcConfirm(idx int, timeoutUs int) int {
	return Default().SrcConfirm(idx, timeoutUs)
}
