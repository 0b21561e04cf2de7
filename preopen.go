package wasi

// Preopen is an entry of the table of capabilities handed to a guest when it
// starts.
type Preopen struct {
	// Path is the name reported to the guest by fd_prestat_dir_name. For the
	// standard streams it is a placeholder between angle brackets.
	Path string
	FD   FD
}

// Stdio is true for the preopens of the standard input, output and error.
func (p Preopen) Stdio() bool {
	return p.FD >= 0 && p.FD <= 2
}

// DefaultPreopens is the preopen table installed when no directories are
// configured: the standard streams followed by the working directory, its
// parent, the root and /tmp.
var DefaultPreopens = []Preopen{
	{Path: "<stdin>", FD: 0},
	{Path: "<stdout>", FD: 1},
	{Path: "<stderr>", FD: 2},
	{Path: "./", FD: 3},
	{Path: "../", FD: 4},
	{Path: "/", FD: 5},
	{Path: "/tmp", FD: 6},
}

// MakePreopens returns the standard streams followed by dirs, numbered from
// zero in order.
func MakePreopens(dirs ...string) []Preopen {
	preopens := make([]Preopen, 0, 3+len(dirs))
	preopens = append(preopens, DefaultPreopens[:3]...)
	for _, dir := range dirs {
		preopens = append(preopens, Preopen{Path: dir, FD: FD(len(preopens))})
	}
	return preopens
}
