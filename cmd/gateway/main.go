// Command gateway runs the A2A protocol gateway and OpenAI-compatible
// chat-completions gateway: it bootstraps a controller-runtime manager
// scoped to one namespace, wires the Registry Reader, Agent-Card
// Projector, Query Driver, Dynamic Router, A2A task-manager bridge and
// OpenAI Adapter together, and serves the public HTTP surface.
//
// Grounded on the teacher's controller-runtime usage throughout
// go/internal/a2a (client.Client, manager.Runnable) — the manager
// bootstrap itself (ctrl.NewManager, zap logger setup) follows
// controller-runtime's own standard entrypoint shape, the same shape the
// teacher's CRD types are generated against.
package main

import (
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/a2a"
	"github.com/kagent-dev/a2agw/internal/agentcard"
	"github.com/kagent-dev/a2agw/internal/config"
	"github.com/kagent-dev/a2agw/internal/httpserver"
	"github.com/kagent-dev/a2agw/internal/metrics"
	"github.com/kagent-dev/a2agw/internal/openai"
	"github.com/kagent-dev/a2agw/internal/queryrun"
	"github.com/kagent-dev/a2agw/internal/registry"
	"github.com/kagent-dev/a2agw/internal/router"
	"github.com/kagent-dev/a2agw/pkg/auth"
)

func main() {
	opts := zap.Options{Development: false}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	log := ctrl.Log.WithName("gateway")

	scheme := newScheme()
	cfg := config.Load()

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:  scheme,
		Metrics: metricsserver.Options{BindAddress: "0"},
	})
	if err != nil {
		log.Error(err, "unable to start manager")
		os.Exit(1)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	reg := registry.New(mgr.GetClient(), cfg.Namespace)
	driver := queryrun.New(reg, log)
	projector := agentcard.New(agentcard.URLConfig{
		Protocol: cfg.AgentCardProtocol,
		Host:     cfg.AgentCardHost,
		Port:     cfg.AgentCardPort,
		Path:     cfg.AgentCardPath,
	}, log)

	build := a2a.NewHandlerFactory(driver, cfg.Namespace, cfg.DefaultTimeout, log)
	dynamicRouter := router.New(reg, projector, build, cfg.ReconcilePeriod(), log)

	streamer := openai.NewConfigMapStreamingConfigResolver(mgr.GetClient(), cfg.Namespace)
	openaiHandler := openai.NewHandler(reg, driver, streamer, log)

	authenticator := resolveAuthenticator(cfg.AuthMode)

	server := httpserver.NewHTTPServer(httpserver.ServerConfig{
		BindAddr:      cfg.BindAddr,
		Dynamic:       dynamicRouter,
		OpenAI:        openaiHandler,
		Authenticator: authenticator,
		Log:           log,
	})

	if err := mgr.Add(dynamicRouter); err != nil {
		log.Error(err, "unable to register dynamic router")
		os.Exit(1)
	}
	if err := mgr.Add(server); err != nil {
		log.Error(err, "unable to register http server")
		os.Exit(1)
	}

	log.Info("starting gateway", "namespace", cfg.Namespace, "bindAddr", cfg.BindAddr, "authMode", cfg.AuthMode)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		log.Error(err, "manager exited with error")
		os.Exit(1)
	}
}

func newScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(s); err != nil {
		panic(err)
	}
	if err := arkv1alpha1.AddToScheme(s); err != nil {
		panic(err)
	}
	return s
}

// resolveAuthenticator picks the Provider this gateway wires up for the
// configured mode. Only "open" is implemented in-process; sso/basic/hybrid
// are external collaborators per spec's Non-goals, and fall back to open
// with a warning rather than silently rejecting every request.
func resolveAuthenticator(mode config.AuthMode) auth.Provider {
	switch mode {
	case config.AuthModeOpen, "":
		return auth.OpenProvider{}
	default:
		ctrl.Log.Info("auth mode has no in-process provider, falling back to open", "mode", mode)
		return auth.OpenProvider{}
	}
}
