package voids

import (
	"time"

	"github.com/alufers/paystat-bot/internal/jsonfile"
)

type FileStorage struct {
	Path string
}

func (s FileStorage) Load(loc *time.Location) (*Document, error) {
	if _, err := jsonfile.Ensure(s.Path, NewDocument(loc)); err != nil {
		return nil, err
	}
	doc := NewDocument(loc)
	if err := jsonfile.Read(s.Path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s FileStorage) Save(d *Document) error {
	return jsonfile.Write(s.Path, d)
}
