package hid

import "runtime"

func defaultYield() {
	runtime.Gosched()
}
