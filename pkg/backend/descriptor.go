package backend

import (
	"strings"
	"text/template"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// Descriptor is the content of one systemd unit file
type Descriptor struct {
	Service          registry.ServiceName
	WorkingDirectory string
	Executable       string

	// Passed through to "run" so the unit sees the operator's configuration
	ConfigFile    string
	RootDirectory string

	User          string
	Group         string
	RestartPolicy string
	WantedBy      string
}

var descriptorTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Runs the service {{.Service}}
After=network.target

[Service]
Type=simple
WorkingDirectory={{.WorkingDirectory}}
ExecStart="{{.Executable}}"{{if .ConfigFile}} --config "{{.ConfigFile}}"{{end}}{{if .RootDirectory}} --root "{{.RootDirectory}}"{{end}} run {{.Service}}
{{- if .User}}
User={{.User}}
{{- end}}
{{- if .Group}}
Group={{.Group}}
{{- end}}
Restart={{.RestartPolicy}}

[Install]
WantedBy={{.WantedBy}}
`))

// RenderDescriptor renders the unit file with LF line endings and a trailing newline
func RenderDescriptor(d Descriptor) (string, error) {
	var b strings.Builder
	if err := descriptorTemplate.Execute(&b, d); err != nil {
		return "", errors.NewInternalError("failed to render unit file", err).WithContext(errors.ContextService, string(d.Service))
	}
	return b.String(), nil
}

// UnitName is the systemd unit a service is registered under
func UnitName(service registry.ServiceName) string {
	return string(service) + ".service"
}
