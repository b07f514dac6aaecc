package pathutil_test

import (
	"strings"
	"syscall"
	"testing"

	"github.com/coremount/vnodefs/pathutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckNameLength(t *testing.T) {
	assert.NoError(t, pathutil.CheckNameLength("short-name"))
	assert.NoError(t, pathutil.CheckNameLength(strings.Repeat("a", pathutil.MaxNameLen)))

	err := pathutil.CheckNameLength(strings.Repeat("a", pathutil.MaxNameLen+1))
	assert.ErrorIs(t, err, syscall.ENAMETOOLONG)
}

func TestIsAppleDouble(t *testing.T) {
	assert.True(t, pathutil.IsAppleDouble("._foo"))
	assert.False(t, pathutil.IsAppleDouble("foo"))
	assert.False(t, pathutil.IsAppleDouble(".foo"))
}

func TestRejectAppleDouble(t *testing.T) {
	assert.ErrorIs(t, pathutil.RejectAppleDouble("._foo", true), syscall.ENOENT)
	assert.NoError(t, pathutil.RejectAppleDouble("._foo", false))
	assert.NoError(t, pathutil.RejectAppleDouble("foo", true))
}

func TestIsAppleXattr(t *testing.T) {
	assert.True(t, pathutil.IsAppleXattr("com.apple.quarantine"))
	assert.False(t, pathutil.IsAppleXattr("user.mine"))
}

func TestFilterAppleXattr(t *testing.T) {
	assert.ErrorIs(t, pathutil.FilterAppleXattr("com.apple.FinderInfo", true), syscall.ENOTSUP)
	assert.NoError(t, pathutil.FilterAppleXattr("com.apple.FinderInfo", false))
	assert.NoError(t, pathutil.FilterAppleXattr("user.mine", true))
}

func TestFilterXattrList(t *testing.T) {
	in := []string{"user.a", "com.apple.b", "user.c", "com.apple.d"}

	assert.Equal(t, in, pathutil.FilterXattrList(in, false))
	assert.Equal(t, []string{"user.a", "user.c"}, pathutil.FilterXattrList(in, true))
}

func TestFilterXattrListDoesNotMutateInput(t *testing.T) {
	in := []string{"user.a", "com.apple.b"}
	_ = pathutil.FilterXattrList(in, true)
	assert.Equal(t, []string{"user.a", "com.apple.b"}, in)
}

func TestJailSymlinkTarget(t *testing.T) {
	assert.Equal(t, "/mnt/fuse/etc/passwd", pathutil.JailSymlinkTarget("/etc/passwd", "/mnt/fuse", true))
	assert.Equal(t, "/etc/passwd", pathutil.JailSymlinkTarget("/etc/passwd", "/mnt/fuse", false))
	assert.Equal(t, "relative/path", pathutil.JailSymlinkTarget("relative/path", "/mnt/fuse", true))
}
