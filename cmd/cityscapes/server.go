package main

import (
	"bytes"
	"encoding/json"
	"log"

	"github.com/pkg/errors"
	http "github.com/valyala/fasthttp"

	"github.com/nvr-ai/go-cityscapes/cityscapes"
	"github.com/nvr-ai/go-cityscapes/images"
)

// info is the /info response body.
type info struct {
	Split       string             `json:"split"`
	Len         int                `json:"len"`
	NumClasses  int                `json:"num_classes"`
	IgnoreIndex int32              `json:"ignore_index"`
	Transform   bool               `json:"transform"`
	ImgSize     images.Size        `json:"img_size"`
	Version     string             `json:"version"`
	Mean        [3]float64         `json:"mean"`
	Classes     []cityscapes.Class `json:"classes"`
}

// sampleInfo is the /sample response body.
type sampleInfo struct {
	Index         int     `json:"index"`
	ImagePath     string  `json:"image_path"`
	LabelPath     string  `json:"label_path"`
	ImageChecksum string  `json:"image_checksum"`
	LabelChecksum string  `json:"label_checksum"`
	Classes       []int32 `json:"classes"`
}

// server answers sample requests against one dataset.
type server struct {
	ds *cityscapes.Dataset
}

func serve(addr string, ds *cityscapes.Dataset) error {
	s := &server{ds: ds}
	log.Printf("Serving %d %s images on %s", ds.Len(), ds.Split(), addr)
	return http.ListenAndServe(addr, s.handle)
}

func (s *server) handle(c *http.RequestCtx) {
	switch string(c.Path()) {
	case "/info":
		s.info(c)
	case "/sample":
		s.withSample(c, s.sample)
	case "/image":
		s.withSample(c, func(c *http.RequestCtx, sm cityscapes.Sample) {
			writePNG(c, sm.Image)
		})
	case "/label":
		s.withSample(c, func(c *http.RequestCtx, sm cityscapes.Sample) {
			writePNG(c, cityscapes.Colorize(sm.Label))
		})
	default:
		c.Error("not found", http.StatusNotFound)
	}
}

func (s *server) info(c *http.RequestCtx) {
	cfg := s.ds.Config()
	writeJSON(c, info{
		Split:       cfg.Split,
		Len:         s.ds.Len(),
		NumClasses:  s.ds.NumClasses(),
		IgnoreIndex: s.ds.IgnoreIndex(),
		Transform:   cfg.IsTransform,
		ImgSize:     cfg.ImgSize,
		Version:     cfg.Version,
		Mean:        s.ds.Mean(),
		Classes:     cityscapes.Classes(),
	})
}

func (s *server) sample(c *http.RequestCtx, sm cityscapes.Sample) {
	writeJSON(c, sampleInfo{
		Index:         sm.Index,
		ImagePath:     sm.ImagePath,
		LabelPath:     sm.LabelPath,
		ImageChecksum: images.Checksum(sm.Image),
		LabelChecksum: images.LabelChecksum(sm.Label),
		Classes:       sm.Label.Unique(),
	})
}

// withSample reads ?index=N and passes the sample to fn.
func (s *server) withSample(c *http.RequestCtx, fn func(*http.RequestCtx, cityscapes.Sample)) {
	index, err := c.QueryArgs().GetUint("index")
	if err != nil {
		c.Error("index must be a non-negative integer", http.StatusBadRequest)
		return
	}
	sm, err := s.ds.Item(index)
	if err != nil {
		c.Error(err.Error(), statusFor(err))
		return
	}
	fn(c, sm)
}

// statusFor maps dataset errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cityscapes.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, cityscapes.ErrPathDerivation):
		return http.StatusNotFound
	case errors.Is(err, cityscapes.ErrInvalidSegmentation), errors.Is(err, cityscapes.ErrUnmappedCode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writePNG(c *http.RequestCtx, img *images.RGB) {
	var buf bytes.Buffer
	if err := images.EncodePNG(&buf, img.Image()); err != nil {
		log.Printf("Err [encode] %v", err)
		c.Error("encode failed", http.StatusInternalServerError)
		return
	}
	c.SetContentType("image/png")
	c.SetBody(buf.Bytes())
}

func writeJSON(c *http.RequestCtx, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Err [json] %v", err)
		c.Error("encode failed", http.StatusInternalServerError)
		return
	}
	c.SetContentType("application/json")
	c.SetBody(data)
}
