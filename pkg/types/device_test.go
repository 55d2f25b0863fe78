package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddr(t *testing.T) {
	d := &Device{Host: "10.0.0.1"}
	assert.Equal(t, "10.0.0.1:22", d.Addr())

	d.Port = 2222
	assert.Equal(t, "10.0.0.1:2222", d.Addr())
}

func TestValidate(t *testing.T) {
	d := &Device{
		Host:       "10.0.0.1",
		Username:   "admin",
		Password:   "pw",
		DeviceType: "cisco_ios",
	}
	assert.NoError(t, d.Validate())

	d.Password = ""
	d.DeviceType = ""
	err := d.Validate()
	assert.ErrorContains(t, err, "password")
	assert.ErrorContains(t, err, "device_type")
}

func TestSplitCommands(t *testing.T) {
	assert.Equal(t, []string{"show version", "show ip int brief"},
		SplitCommands("show version; show ip int brief;"))
	assert.Nil(t, SplitCommands(" ; ;"))
	assert.Nil(t, SplitCommands(""))
}
