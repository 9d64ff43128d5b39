// internal/di/container_test.go
package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainer_RegisterAndGet(t *testing.T) {
	c := NewContainer()

	assert.Nil(t, c.Get("storage"))
	assert.False(t, c.Has("storage"))

	type fakeService struct{ name string }
	svc := &fakeService{name: "storage"}
	c.Register("storage", svc)

	assert.True(t, c.Has("storage"))
	got, ok := c.Get("storage").(*fakeService)
	assert.True(t, ok)
	assert.Same(t, svc, got)
}

func TestContainer_GetNames(t *testing.T) {
	c := NewContainer()
	c.Register("a", 1)
	c.Register("b", 2)

	assert.ElementsMatch(t, []string{"a", "b"}, c.GetNames())
}

func TestGetContainer_Singleton(t *testing.T) {
	assert.Same(t, GetContainer(), GetContainer())
}
