package useragent

import (
	"fmt"
	"runtime"

	"github.com/agentmesh/meshchat/pkg/version"
)

var Header = fmt.Sprintf("Meshchat/%s (%s; %s)", version.Version, runtime.GOOS, runtime.GOARCH)
