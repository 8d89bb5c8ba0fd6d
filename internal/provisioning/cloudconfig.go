package provisioning

import (
	"bytes"
	"fmt"
	"text/template"
)

const cloudConfigTemplate = `#cloud-config
ssh_pwauth: no
users:
  - name: {{.Username}}
    sudo: ALL=(ALL) NOPASSWD:ALL
    shell: /bin/bash
    ssh_authorized_keys:
      - "{{.PublicKey}}"`

type cloudConfigData struct {
	Username  string
	PublicKey string
}

// GenerateCloudConfig renders the cloud-init user-data that creates the test
// user and installs the run's SSH public key.
func GenerateCloudConfig(username, publicKey string) (string, error) {
	tmpl, err := template.New("cloud-config").Parse(cloudConfigTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse cloud-config template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, cloudConfigData{Username: username, PublicKey: publicKey})
	if err != nil {
		return "", fmt.Errorf("failed to render cloud-config: %w", err)
	}

	return buf.String(), nil
}
