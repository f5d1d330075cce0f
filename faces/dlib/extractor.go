// Package dlib provides the production face extractor backed by github.com/Kagami/go-face.
// It needs cgo and the dlib models (shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat, mmod_human_face_detector.dat).
package dlib

import (
	"rollcall/faces"

	"github.com/Kagami/go-face"
)

type Extractor struct {
	recognizer *face.Recognizer
	cnn        bool
}

// NewExtractor loads the models from modelsDir. With cnn the slower, more angle tolerant
// CNN detector is used instead of HOG.
func NewExtractor(modelsDir string, cnn bool) (*Extractor, error) {
	recognizer, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, err
	}
	return &Extractor{recognizer: recognizer, cnn: cnn}, nil
}

// Open adapts NewExtractor to faces.Matcher.Load
func Open(modelsDir string, cnn bool) func() (faces.Extractor, error) {
	return func() (faces.Extractor, error) {
		return NewExtractor(modelsDir, cnn)
	}
}

func (e *Extractor) Extract(jpeg []byte) ([]faces.Descriptor, error) {
	var found []face.Face
	var err error
	if e.cnn {
		found, err = e.recognizer.RecognizeCNN(jpeg)
	} else {
		found, err = e.recognizer.Recognize(jpeg)
	}
	if err != nil {
		return nil, err
	}
	result := make([]faces.Descriptor, 0, len(found))
	for _, cur := range found {
		result = append(result, faces.Descriptor(cur.Descriptor))
	}
	return result, nil
}

func (e *Extractor) Close() {
	e.recognizer.Close()
}
