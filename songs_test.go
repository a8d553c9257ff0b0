package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "watch", url: "https://www.youtube.com/watch?v=WXwgZL4sgaQ", want: "WXwgZL4sgaQ"},
		{name: "short link", url: "https://youtu.be/Pfo-8z86x80", want: "Pfo-8z86x80"},
		{name: "embed", url: "https://www.youtube.com/embed/esTVVjpTzIY", want: "esTVVjpTzIY"},
		{name: "v path", url: "https://www.youtube.com/v/CziHrYYSyPc", want: "CziHrYYSyPc"},
		{name: "user path", url: "https://www.youtube.com/u/x/R3D-r4ogr7s", want: "R3D-r4ogr7s"},
		{name: "secondary param", url: "https://www.youtube.com/playlist?list=abc&v=WXwgZL4sgaQ", want: "WXwgZL4sgaQ"},
		{name: "trailing params", url: "https://www.youtube.com/watch?v=WXwgZL4sgaQ&t=42s", want: "WXwgZL4sgaQ"},
		{name: "not youtube", url: "https://example.com/watch?v=WXwgZL4sgaQ", want: "WXwgZL4sgaQ"},
		{name: "id too short", url: "https://www.youtube.com/watch?v=abc", wantErr: true},
		{name: "no id", url: "https://www.youtube.com/", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractVideoID(tc.url)
			if tc.wantErr {
				assert.ErrorIs(t, err, errInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateSong(t *testing.T) {
	accepted := []SongEntry{
		{ID: "a", Title: "Fairytale", VideoID: "WXwgZL4sgaQ", PlayerID: "p1"},
		{ID: "b", Title: "Euphoria", VideoID: "Pfo-8z86x80", PlayerID: "p2"},
	}

	t.Run("accepts a new song", func(t *testing.T) {
		entry, err := validateSong("https://youtu.be/esTVVjpTzIY", "Satellite", "Lena", "p1", accepted)
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "esTVVjpTzIY", entry.VideoID)
		assert.Equal(t, "https://img.youtube.com/vi/esTVVjpTzIY/0.jpg", entry.Thumbnail)
		assert.Equal(t, "p1", entry.PlayerID)
	})

	t.Run("rejects duplicate video id from another player", func(t *testing.T) {
		_, err := validateSong("https://www.youtube.com/watch?v=WXwgZL4sgaQ", "Other Title", "Someone", "p2", accepted)
		assert.ErrorIs(t, err, errDuplicateSong)
	})

	t.Run("rejects duplicate title case-insensitively", func(t *testing.T) {
		_, err := validateSong("https://youtu.be/CziHrYYSyPc", "EUPHORIA", "Loreen", "p3", accepted)
		assert.ErrorIs(t, err, errDuplicateSong)
	})

	t.Run("rejects invalid url before duplicate check", func(t *testing.T) {
		_, err := validateSong("not a url", "Fairytale", "Rybak", "p1", accepted)
		assert.ErrorIs(t, err, errInvalidURL)
	})
}
