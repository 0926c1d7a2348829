package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/elastic-io/manifest-tools/internal/config"
	"github.com/elastic-io/manifest-tools/internal/options"
	"github.com/elastic-io/manifest-tools/internal/s3gateway"
	"github.com/elastic-io/manifest-tools/internal/storage"
	_ "github.com/elastic-io/manifest-tools/internal/storage/bolt"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockApp 实现 App 接口用于测试
type MockApp struct {
	mock.Mock
}

func (m *MockApp) Run() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockApp) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func programOf(a App) Program {
	return func() (App, error) { return a, nil }
}

func TestMain_ProgramError(t *testing.T) {
	expectedErr := errors.New("program initialization error")

	err := Main(func() (App, error) { return nil, expectedErr })
	assert.Equal(t, expectedErr, err)
}

func TestMain_AppRunError(t *testing.T) {
	mockApp := new(MockApp)
	runErr := errors.New("app run error")
	mockApp.On("Run").Return(runErr)
	mockApp.On("Stop").Return(nil)

	err := Main(programOf(mockApp))
	assert.Equal(t, runErr, err)
	mockApp.AssertExpectations(t)
}

func TestMain_AppStopError(t *testing.T) {
	mockApp := new(MockApp)
	stopErr := errors.New("app stop error")
	mockApp.On("Run").Return(nil)
	mockApp.On("Stop").Return(stopErr)

	err := Main(programOf(mockApp))
	assert.Equal(t, stopErr, err)
	mockApp.AssertExpectations(t)
}

func TestMain_RunErrorWinsOverStopError(t *testing.T) {
	mockApp := new(MockApp)
	runErr := errors.New("run error")
	mockApp.On("Run").Return(runErr)
	mockApp.On("Stop").Return(errors.New("stop error"))

	assert.Equal(t, runErr, Main(programOf(mockApp)))
}

func TestMain_SuccessfulRunAndStop(t *testing.T) {
	mockApp := new(MockApp)
	mockApp.On("Run").Return(nil)
	mockApp.On("Stop").Return(nil)

	assert.NoError(t, Main(programOf(mockApp)))
	mockApp.AssertExpectations(t)
}

func TestMain_SignalHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过信号测试在短测试模式下")
	}

	stopped := make(chan struct{})
	mockApp := new(MockApp)
	// Run 阻塞直到 Stop 被调用
	mockApp.On("Run").Run(func(args mock.Arguments) {
		<-stopped
	}).Return(errors.New("context canceled"))
	mockApp.On("Stop").Run(func(args mock.Arguments) {
		close(stopped)
	}).Return(nil)

	go func() {
		time.Sleep(100 * time.Millisecond)
		if process, err := os.FindProcess(os.Getpid()); err == nil {
			process.Signal(syscall.SIGTERM)
		}
	}()

	start := time.Now()
	err := Main(programOf(mockApp))

	assert.EqualError(t, err, "context canceled")
	assert.Less(t, time.Since(start), 2*time.Second)
	mockApp.AssertExpectations(t)
}

func TestMain_SignalWithCleanRun(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过信号测试在短测试模式下")
	}

	stopped := make(chan struct{})
	mockApp := new(MockApp)
	mockApp.On("Run").Run(func(args mock.Arguments) {
		<-stopped
	}).Return(nil)
	mockApp.On("Stop").Run(func(args mock.Arguments) {
		close(stopped)
	}).Return(nil)

	go func() {
		time.Sleep(100 * time.Millisecond)
		if process, err := os.FindProcess(os.Getpid()); err == nil {
			process.Signal(syscall.SIGINT)
		}
	}()

	err := Main(programOf(mockApp))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted by")
}

type testGateway struct {
	gw   *s3gateway.Gateway
	opts *options.Options
}

func setupGateway(t *testing.T) *testGateway {
	s, err := storage.NewStorage("bolt", filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	gw := s3gateway.New(s)

	require.NoError(t, gw.PutObject("manifest-tools", "unload/a", []byte("first\n"), nil))
	require.NoError(t, gw.PutObject("manifest-tools", "unload/b", []byte("second\n"), nil))
	require.NoError(t, gw.PutObject("manifest-tools", "unload/manifest", []byte(`{"entries":[
		{"url":"s3://manifest-tools/unload/a"},
		{"url":"s3://manifest-tools/unload/b"}
	]}`), nil))

	return &testGateway{
		gw: gw,
		opts: &options.Options{
			Backend:    "s3",
			Region:     "us-east-1",
			Endpoint:   "http://127.0.0.1:9000",
			AccessKey:  "AKIDEXAMPLE",
			SecretKey:  "secret",
			PathStyle:  true,
			DisableSSL: true,
			Transport:  gw.RoundTripper(),
			Config: &config.Config{
				ManifestURL: "s3://manifest-tools/unload/manifest",
				FetchSize:   types.DefaultFetchSize,
				Parallel:    1,
			},
		},
	}
}

func TestRetrieval_InvalidOptions(t *testing.T) {
	g := setupGateway(t)
	g.opts.Config.Action = config.ActionRetrieveFiles

	_, err := New(g.opts, &bytes.Buffer{})
	assert.ErrorContains(t, err, "dest")
}

func TestRetrieval_ListFiles(t *testing.T) {
	g := setupGateway(t)
	g.opts.Config.Action = config.ActionListFiles

	var out bytes.Buffer
	a, err := New(g.opts, &out)
	require.NoError(t, err)
	require.NoError(t, a.Run())
	assert.Equal(t, "s3://manifest-tools/unload/a\ns3://manifest-tools/unload/b\n", out.String())
}

func TestRetrieval_CatFiles(t *testing.T) {
	g := setupGateway(t)
	g.opts.Config.Action = config.ActionCatFiles

	var out bytes.Buffer
	a, err := New(g.opts, &out)
	require.NoError(t, err)
	require.NoError(t, Main(func() (App, error) { return a, nil }))
	assert.Equal(t, "first\nsecond\n", out.String())
}

func TestRetrieval_RetrieveFiles(t *testing.T) {
	g := setupGateway(t)
	dir := t.TempDir()
	g.opts.Config.Action = config.ActionRetrieveFiles
	g.opts.Config.Dest = dir

	var out bytes.Buffer
	a, err := New(g.opts, &out)
	require.NoError(t, err)
	require.NoError(t, a.Run())
	assert.Empty(t, out.String())

	got, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(got))

	// 第二次运行因文件已存在而失败，且不会覆盖
	a, err = New(g.opts, &out)
	require.NoError(t, err)
	assert.Error(t, a.Run())

	g.opts.Config.Overwrite = true
	a, err = New(g.opts, &out)
	require.NoError(t, err)
	assert.NoError(t, a.Run())
}

func TestRetrieval_StopCancels(t *testing.T) {
	g := setupGateway(t)
	g.opts.Config.Action = config.ActionCatFiles

	var out bytes.Buffer
	a, err := New(g.opts, &out)
	require.NoError(t, err)
	require.NoError(t, a.Stop())
	assert.Error(t, a.Run())
	assert.Empty(t, out.String())
}
