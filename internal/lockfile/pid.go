package lockfile

import "os"

func pid() int { return os.Getpid() }
