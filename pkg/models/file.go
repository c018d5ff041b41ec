package models

import (
	"strings"
	"time"
)

// Audio file types are transcribed and diarized; everything else is read as text.
var audioTypes = map[string]bool{
	"wav": true,
	"mp3": true,
	"amr": true,
}

// AllowedFileTypes lists the extensions accepted on upload.
var AllowedFileTypes = map[string]bool{
	"txt": true,
	"pdf": true,
	"wav": true,
	"mp3": true,
	"amr": true,
}

// File is an uploaded file owned by a single user.
type File struct {
	ID        int64     `db:"id"         json:"id"`
	UserID    int64     `db:"user_id"    json:"-"`
	Filename  string    `db:"filename"   json:"filename"`
	Filepath  string    `db:"filepath"   json:"-"`
	Filetype  string    `db:"filetype"   json:"filetype"`
	Size      int64     `db:"size"       json:"size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsAudio reports whether the file goes through transcription and diarization.
func (f File) IsAudio() bool {
	return audioTypes[strings.ToLower(f.Filetype)]
}
