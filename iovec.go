package wasi

// IOVec is a slice of guest memory used for vectored reads and writes.
//
// An IOVec aliases the guest linear memory directly. It is only valid until
// the memory is grown, and must not be retained after the host function that
// received it returns.
type IOVec []byte
