// Package s3 reads asset catalog files out of an S3 bucket prefix so a
// remote export can be synced down and served by a file catalog.
package s3

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/marinedk/mdk"
	"github.com/pkg/errors"
)

// SrcOption is a functional option type for the s3 RawSource.
type SrcOption func(s *RawSource)

// OptSrcBucket sets the S3 bucket.
func OptSrcBucket(bucket string) SrcOption {
	return func(s *RawSource) {
		s.bucket = bucket
	}
}

// OptSrcRegion sets the AWS region.
func OptSrcRegion(region string) SrcOption {
	return func(s *RawSource) {
		s.region = region
	}
}

// OptSrcPrefix restricts the listing to keys under prefix.
func OptSrcPrefix(prefix string) SrcOption {
	return func(s *RawSource) {
		s.prefix = prefix
	}
}

// RawSource is an mdk.RawSource over the objects of one bucket prefix.
// Reader names are the object keys with the prefix stripped, so a sync
// reproduces the catalog directory layout.
type RawSource struct {
	bucket string
	prefix string
	region string

	s3      *s3.S3
	sess    *session.Session
	objects []*s3.Object
	objIdx  *uint64
}

// NewRawSource lists the configured prefix and returns a RawSource over it.
func NewRawSource(opts ...SrcOption) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		objIdx: &idx,
	}
	for _, opt := range opts {
		opt(rs)
	}
	var err error
	rs.sess, err = session.NewSession(&aws.Config{
		Region: aws.String(rs.region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting aws session")
	}
	rs.s3 = s3.New(rs.sess)
	resp, err := rs.s3.ListObjects(&s3.ListObjectsInput{Bucket: aws.String(rs.bucket), Prefix: aws.String(rs.prefix)})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	rs.objects = resp.Contents

	return rs, nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader implements mdk.RawSource.
func (rs *RawSource) NextReader() (mdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(*obj.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	name := strings.TrimPrefix(strings.TrimPrefix(*obj.Key, rs.prefix), "/")
	return &objReader{name: name, body: result.Body}, nil
}
