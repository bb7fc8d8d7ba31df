package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
	"github.com/confhub/backend/storage/database/dummy"
	"github.com/confhub/backend/testutil"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    user.Role
		wantErr error
	}{
		{in: "REVIEWER", want: user.RoleReviewer},
		{in: " organizer ", want: user.RoleOrganizer},
		{in: "author", want: user.RoleAuthor},
		{in: "chair", wantErr: user.ErrUnknownRole},
		{in: "", wantErr: user.ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := user.ParseRole(tt.in)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	nu := user.NewUser{Name: " Rita ", Email: " Rita@Confhub.TEST", Role: "reviewer"}
	require.NoError(t, nu.Validate(validate))
	assert.Equal(t, user.NewUser{Name: "Rita", Email: "rita@confhub.test", Role: user.RoleReviewer}, nu)

	nu = user.NewUser{Name: "Rita", Email: "rita@confhub.test", Role: "chair"}
	err := nu.Validate(validate)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "invalid role", verrs[0].Translate(translator))
}

func TestService_GetOrCreate(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	svc := user.NewService(repo)
	ctx := context.Background()

	rita := testutil.CreateUser(t, repo, "Rita", "rita@confhub.test", user.RoleReviewer)

	got, created, err := svc.GetOrCreate(ctx, " RITA@confhub.test", user.RoleReviewer)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rita.ID, got.ID)

	got, created, err = svc.GetOrCreate(ctx, "remy@confhub.test", user.RoleReviewer)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "remy", got.Name)
	assert.Equal(t, user.RoleReviewer, got.Role)
	assert.True(t, got.IsActive)

	_, err = svc.Create(ctx, user.NewUser{Name: "Remy", Email: "remy@confhub.test", Role: user.RoleAuthor})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, user.ErrEmailExists, verr.Err)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, verr.Fields)
}
