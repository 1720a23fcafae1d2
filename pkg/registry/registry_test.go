package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/nodes/bamboohr"
	"github.com/wehubfusion/Talos/pkg/nodes/jenkins"
)

func TestRegisterAndGet(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(jenkins.New()))
	require.NoError(t, reg.Register(bamboohr.New()))

	integration, err := reg.Get(jenkins.NodeName)
	require.NoError(t, err)
	assert.Equal(t, jenkins.NodeName, integration.Description().Name)

	assert.Equal(t, []string{bamboohr.NodeName, jenkins.NodeName}, reg.Names())
}

func TestRegisterDuplicate(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(jenkins.New()))
	assert.Error(t, reg.Register(jenkins.New()))
}

func TestGetUnknown(t *testing.T) {
	reg := New()
	_, err := reg.Get("asana")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNodeTypeNotRegistered)
}

func TestRegisterNil(t *testing.T) {
	reg := New()
	assert.Error(t, reg.Register(nil))
}
