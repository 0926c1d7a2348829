package s3gateway

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/storage"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// DefaultRegion 桶未记录区域时视为 us-east-1
const DefaultRegion = "us-east-1"

// S3 错误响应
type ErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

type LocationConstraint struct {
	XMLName xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ LocationConstraint"`
	Region  string   `xml:",chardata"`
}

// Gateway serves the read side of the S3 API (bucket location, HEAD and
// ranged GET of objects) over a Storage, path-style only.
type Gateway struct {
	storage storage.Storage
	app     *fiber.App
}

func New(s storage.Storage) *Gateway {
	g := &Gateway{
		storage: s,
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			CaseSensitive:         true,
			UnescapePath:          true,
			ReadBufferSize:        16 * types.KB,
			WriteBufferSize:       16 * types.KB,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if e, ok := err.(*fiber.Error); ok {
					code = e.Code
				}
				log.Logger.Error("HTTP Error: ", err)
				return sendError(c, code, "InternalError", err.Error())
			},
		}),
	}

	g.app.Use(loggingMiddleware())
	g.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Logger.Error(fmt.Sprintf("Recovered from panic: %v\n%s", e, debug.Stack()))
		},
	}))
	g.registerRoutes()
	return g
}

func (g *Gateway) App() *fiber.App {
	return g.app
}

// RoundTripper 将 HTTP 客户端请求直接交给进程内的 fiber 应用，不经过网络
func (g *Gateway) RoundTripper() http.RoundTripper {
	return roundTripper{app: g.app}
}

type roundTripper struct {
	app *fiber.App
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	resp, err := rt.app.Test(req.Clone(req.Context()), -1)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func (g *Gateway) registerRoutes() {
	g.app.Get("/:bucket", g.handleBucket)
	g.app.Get("/:bucket/*", g.handleGetObject)
}

// CreateBucket 创建桶，region 为空表示 us-east-1
func (g *Gateway) CreateBucket(bucket, region string) error {
	return g.storage.CreateBucket(bucket, region)
}

// PutObject 写入对象，桶不存在时在默认区域创建
func (g *Gateway) PutObject(bucket, key string, data []byte, metadata map[string]string) error {
	if _, err := g.storage.BucketRegion(bucket); errors.Is(err, storage.ErrBucketNotFound) {
		if err := g.storage.CreateBucket(bucket, ""); err != nil {
			return err
		}
	}
	return g.storage.PutObject(bucket, &types.ObjectData{
		Key:         key,
		Data:        data,
		ContentType: "application/octet-stream",
		Metadata:    types.NormalizeMetadata(metadata),
	})
}

// GET /:bucket?location
func (g *Gateway) handleBucket(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	if !c.Context().QueryArgs().Has("location") {
		return sendError(c, fiber.StatusNotImplemented, "NotImplemented", "only GetBucketLocation is supported")
	}

	log.Logger.Debug("S3 get bucket location request: ", bucket)
	region, err := g.storage.BucketRegion(bucket)
	if errors.Is(err, storage.ErrBucketNotFound) {
		return sendError(c, fiber.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
	}
	if err != nil {
		return err
	}
	return sendXML(c, fiber.StatusOK, LocationConstraint{Region: region})
}

func (g *Gateway) handleGetObject(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	key := c.Params("*")
	log.Logger.Debug("S3 get object request: ", c.Method(), " ", bucket, "/", key)

	region, err := g.storage.BucketRegion(bucket)
	if errors.Is(err, storage.ErrBucketNotFound) {
		return sendError(c, fiber.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
	}
	if err != nil {
		return err
	}
	if region == "" {
		region = DefaultRegion
	}
	if signed := signingRegion(c.Get(fiber.HeaderAuthorization)); signed != "" && signed != region {
		c.Set("x-amz-bucket-region", region)
		return sendError(c, fiber.StatusMovedPermanently, "PermanentRedirect",
			"The bucket you are attempting to access must be addressed using the specified endpoint")
	}

	object, err := g.storage.GetObject(bucket, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return sendError(c, fiber.StatusNotFound, "NoSuchKey", "The specified key does not exist")
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, object.ContentType)
	c.Set(fiber.HeaderETag, object.ETag)
	c.Set(fiber.HeaderLastModified, object.LastModified.UTC().Format(http.TimeFormat))
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	// 设置用户元数据
	for k, v := range object.Metadata {
		c.Set("x-amz-meta-"+k, v)
	}

	data := object.Data
	status := fiber.StatusOK
	// 空对象忽略 Range
	if header := c.Get(fiber.HeaderRange); header != "" && len(data) > 0 {
		size := int64(len(data))
		lo, hi, ok := parseRange(header)
		if !ok {
			return sendError(c, fiber.StatusBadRequest, "InvalidArgument", "invalid range "+header)
		}
		if lo >= size {
			return sendError(c, fiber.StatusRequestedRangeNotSatisfiable, "InvalidRange",
				"The requested range is not satisfiable")
		}
		if hi < 0 || hi >= size {
			hi = size - 1
		}
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", lo, hi, size))
		data = data[lo : hi+1]
		status = fiber.StatusPartialContent
	}

	// HEAD 请求由 fasthttp 丢弃响应体，但保留 Content-Length
	return c.Status(status).Send(data)
}

var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// parseRange 解析 bytes=lo-hi，hi 缺省时返回 -1
func parseRange(header string) (int64, int64, bool) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return 0, 0, false
	}
	lo, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if m[2] == "" {
		return lo, -1, true
	}
	hi, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

var credentialPattern = regexp.MustCompile(`Credential=[^/]+/\d{8}/([^/]+)/s3/aws4_request`)

// signingRegion 从 SigV4 Authorization 头中取出签名区域
func signingRegion(auth string) string {
	m := credentialPattern.FindStringSubmatch(auth)
	if m == nil {
		return ""
	}
	return m[1]
}

func sendXML(c *fiber.Ctx, status int, v interface{}) error {
	data, err := xml.Marshal(v)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to generate response")
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.Status(status).Send(append([]byte(xml.Header), data...))
}

func sendError(c *fiber.Ctx, status int, code, message string) error {
	return sendXML(c, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Resource:  c.Path(),
		RequestID: strconv.FormatInt(time.Now().UnixNano(), 36),
	})
}

func loggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Logger.Debug(c.Method(), " ", c.Path(), " ", c.Response().StatusCode(), " completed in ", time.Since(start))
		return err
	}
}
