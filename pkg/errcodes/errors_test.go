package errcodes

import (
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := TextLayerUnavailable("fiction/scan.pdf")

	assert.True(t, HasCode(err, CodeTextLayerUnavailable))
	assert.False(t, HasCode(err, CodeRetrievalNotFound))
	assert.False(t, HasCode(nil, CodeTextLayerUnavailable))
}

func TestHasCodeSeesWrappedErrors(t *testing.T) {
	err := pkgerrors.Wrap(RetrievalNotFound("query"), "lookup")

	assert.True(t, HasCode(err, CodeRetrievalNotFound))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "No metadata found for \"walden\".", RetrievalNotFound("walden").Error())
	assert.Equal(t, "Target file a/b.pdf diverged from source.", SyncCollision("a/b.pdf").Error())
}
