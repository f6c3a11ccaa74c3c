package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirongolddev/spendgrid/internal/model"
	"github.com/theirongolddev/spendgrid/internal/store"
	"go.uber.org/mock/gomock"
)

func TestRequire_RoleMatrix(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := NewMockMembershipReader(ctrl)
	gate := NewGate(members)

	roles := []model.Role{model.RoleViewer, model.RoleEditor, model.RoleAdmin}
	actions := []Action{SpendRead, SpendWrite, OrgManage}

	for _, role := range roles {
		for _, action := range actions {
			t.Run(role.String()+"/"+string(action), func(t *testing.T) {
				members.EXPECT().GetMembership(gomock.Any(), "org-1", "alice").
					Return(&model.Membership{OrgID: "org-1", UserID: "alice", Role: role}, nil)

				ctx := WithUserID(context.Background(), "alice")
				p, err := gate.Require(ctx, "org-1", action)

				if role.Rank() >= action.MinRole().Rank() {
					require.NoError(t, err)
					assert.Equal(t, Principal{UserID: "alice", Role: role}, p)
					return
				}
				var fe *ForbiddenError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, action.MinRole(), fe.Required)
				assert.Equal(t, "forbidden: requires "+action.MinRole().String(), err.Error())
			})
		}
	}
}

func TestRequire_ViewerCanReadNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := NewMockMembershipReader(ctrl)
	members.EXPECT().GetMembership(gomock.Any(), "org-1", "vera").
		Return(&model.Membership{OrgID: "org-1", UserID: "vera", Role: model.RoleViewer}, nil).
		Times(2)

	gate := NewGate(members)
	ctx := WithUserID(context.Background(), "vera")

	_, err := gate.Require(ctx, "org-1", SpendRead)
	require.NoError(t, err)

	_, err = gate.Require(ctx, "org-1", SpendWrite)
	var fe *ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, model.RoleEditor, fe.Required)
}

func TestRequire_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	gate := NewGate(NewMockMembershipReader(ctrl))

	_, err := gate.Require(context.Background(), "org-1", SpendRead)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = gate.Require(WithUserID(context.Background(), ""), "org-1", SpendRead)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequire_NotMember(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := NewMockMembershipReader(ctrl)
	members.EXPECT().GetMembership(gomock.Any(), "org-2", "alice").Return(nil, store.ErrNotFound)

	_, err := NewGate(members).Require(WithUserID(context.Background(), "alice"), "org-2", SpendRead)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestRequire_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := NewMockMembershipReader(ctrl)
	boom := errors.New("connection reset")
	members.EXPECT().GetMembership(gomock.Any(), "org-1", "alice").Return(nil, boom)

	_, err := NewGate(members).Require(WithUserID(context.Background(), "alice"), "org-1", SpendRead)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotMember)
}

func TestRequire_NoCaching(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.PutMembership(ctx, model.Membership{OrgID: "org-1", UserID: "alice", Role: model.RoleAdmin}))

	gate := NewGate(s)
	caller := WithUserID(ctx, "alice")
	_, err := gate.Require(caller, "org-1", OrgManage)
	require.NoError(t, err)

	require.NoError(t, s.PutMembership(ctx, model.Membership{OrgID: "org-1", UserID: "alice", Role: model.RoleViewer}))
	_, err = gate.Require(caller, "org-1", OrgManage)
	var fe *ForbiddenError
	assert.ErrorAs(t, err, &fe)
}

func TestAction_MinRole(t *testing.T) {
	assert.Equal(t, model.RoleViewer, SpendRead.MinRole())
	assert.Equal(t, model.RoleEditor, SpendWrite.MinRole())
	assert.Equal(t, model.RoleAdmin, OrgManage.MinRole())
	assert.Equal(t, model.RoleAdmin, Action("SOMETHING_ELSE").MinRole())
}
