//go:build cgo

package xref

import (
	"context"
	"testing"

	"symnav/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCallees(t *testing.T) {
	f := loadFixture(t)
	r := f.resolver(Options{})

	callees, err := r.FindCallees(context.Background(), f.decl(t, testutil.ControllerGet))
	require.NoError(t, err)
	assert.Equal(t, []string{"App.Services.UserService.GetById"}, names(callees))

	callees, err = r.FindCallees(context.Background(), f.decl(t, testutil.UserGetByID))
	require.NoError(t, err)
	assert.Equal(t, []string{"App.Models.User.User", "App.Models.User.Activate"}, names(callees))

	callees, err = r.FindCallees(context.Background(), f.decl(t, testutil.UserEnable))
	require.NoError(t, err)
	assert.Equal(t, []string{"App.Models.User.Activate"}, names(callees), "repeated calls are deduplicated")
}

func TestFindCallees_EmptyBody(t *testing.T) {
	f := loadFixture(t)

	callees, err := f.resolver(Options{}).FindCallees(context.Background(), f.decl(t, testutil.IUserGetByID))
	require.NoError(t, err)
	assert.NotNil(t, callees)
	assert.Empty(t, callees)

	callees, err = f.resolver(Options{}).FindCallees(context.Background(), f.decl(t, testutil.UserActivate))
	require.NoError(t, err)
	assert.Empty(t, callees)
}

func TestCallGraph_Callees(t *testing.T) {
	f := loadFixture(t)

	g, err := f.resolver(Options{}).CallGraph(context.Background(), f.decl(t, testutil.ControllerGet), DirectionCallees, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"App.Controllers.UserController.GetUser",
		"App.Services.UserService.GetById",
		"App.Models.User.User",
		"App.Models.User.Activate",
	}, names(g.Nodes))
	assert.Len(t, g.Edges, 3)
}
