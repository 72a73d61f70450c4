/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	crcache "sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/features/bitwardensecret"
	"github.com/jrcichra/bitwarden-secrets-operator/internal/config"
	"github.com/jrcichra/bitwarden-secrets-operator/internal/crd"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/credentials"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/leader"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

const eventSource = "bitwarden-secrets-operator"

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(bwsv1.AddToScheme(scheme))
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	zapOpts := zap.Options{TimeEncoder: zapcore.ISO8601TimeEncoder}

	cmd := &cobra.Command{
		Use:   "bitwarden-secrets-operator",
		Short: "Sync Bitwarden items into Kubernetes Secrets",
		Long: `bitwarden-secrets-operator watches BitwardenSecret resources and keeps a
Secret of the same name filled with the credential of the referenced
Bitwarden item.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				setupLog.Error(err, "invalid configuration")
				return err
			}
			if cfg.CRD {
				return writeCRD(cfg.CRDOutput, cmd.OutOrStdout())
			}

			err = run(ctrl.SetupSignalHandler(), cfg)
			if err != nil {
				setupLog.Error(err, "operator stopped", logger.KeyReason, operrors.Classify(err))
			}
			return err
		},
	}

	config.BindFlags(cmd.Flags())
	goflags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goflags)
	cmd.Flags().AddGoFlagSet(goflags)

	return cmd
}

func writeCRD(path string, stdout io.Writer) error {
	if path == "" {
		return crd.Write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return crd.Write(f)
}

// run blocks until ctx is done or a task fails. Leadership is acquired before
// anything touches the vault and is held for the lifetime of the process.
func run(ctx context.Context, cfg *config.Config) error {
	defer memguard.Purge()

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("failed to create clientset: %w", err)
	}
	httpClient, err := rest.HTTPClientFor(restConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	abort := func(err error) error {
		cancel()
		_ = g.Wait()
		return err
	}

	// Standby replicas expose metrics too.
	metricsServer, err := metricsserver.NewServer(metricsserver.Options{BindAddress: cfg.MetricsAddr()},
		restConfig, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	g.Go(func() error { return metricsServer.Start(gctx) })

	gate, err := leader.NewGate(leader.Config{
		Client:    clientset,
		Namespace: cfg.LeaseNamespace,
		Name:      cfg.LeaseName,
		Log:       ctrl.Log.WithName("leader"),
	})
	if err != nil {
		return abort(err)
	}
	setupLog.Info("waiting for leadership", logger.KeyLease, cfg.LeaseName, logger.KeyIdentity, gate.Identity())
	if err := gate.WaitForLeadership(gctx); err != nil {
		return abort(fmt.Errorf("lease not acquired: %w", err))
	}
	g.Go(func() error { return gate.Hold(gctx) })

	bwOpts := bitwarden.Options{
		Binary:      cfg.BWBinary,
		PasswordEnv: cfg.PasswordEnv,
		Log:         ctrl.Log.WithName("bitwarden"),
	}
	sessions := bitwarden.NewSessionManager(bwOpts)
	session, err := sessions.Login(gctx)
	if err != nil {
		return abort(err)
	}

	items := credentials.NewCache()
	refresher := credentials.NewRefresher(credentials.RefresherConfig{
		Cache:    items,
		Auth:     sessions,
		Fetcher:  bitwarden.NewClient(bwOpts),
		Session:  session,
		Folder:   cfg.Folder,
		Interval: cfg.CacheRefreshInterval,
		Log:      ctrl.Log.WithName("credentials"),
	})
	if err := refresher.RefreshOnce(gctx); err != nil {
		setupLog.Error(err, "initial credential refresh failed, reconciles will fail until the next refresh",
			logger.KeyFolder, cfg.Folder)
	}

	mgrOpts := ctrl.Options{
		Scheme:  scheme,
		Metrics: metricsserver.Options{BindAddress: "0"},
	}
	if cfg.Namespace != "" {
		mgrOpts.Cache = crcache.Options{
			DefaultNamespaces: map[string]crcache.Config{cfg.Namespace: {}},
		}
	}
	mgr, err := ctrl.NewManager(restConfig, mgrOpts)
	if err != nil {
		return abort(fmt.Errorf("failed to create manager: %w", err))
	}
	if err := mgr.Add(refresher); err != nil {
		return abort(fmt.Errorf("failed to add credential refresher: %w", err))
	}

	feature := bitwardensecret.New(bitwardensecret.Config{
		K8sClient:               mgr.GetClient(),
		Scheme:                  mgr.GetScheme(),
		Items:                   items,
		Recorder:                mgr.GetEventRecorderFor(eventSource),
		Log:                     ctrl.Log,
		Namespace:               cfg.Namespace,
		ResyncInterval:          cfg.ReconcileInterval,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
	})
	if err := feature.SetupWithManager(mgr); err != nil {
		return abort(fmt.Errorf("failed to set up BitwardenSecret feature: %w", err))
	}

	setupLog.Info("starting manager", logger.KeyFolder, cfg.Folder, logger.KeyNamespace, cfg.Namespace)
	g.Go(func() error { return mgr.Start(gctx) })

	err = g.Wait()
	if errors.Is(err, operrors.ErrLeadershipLost) {
		return err
	}
	if err != nil {
		return fmt.Errorf("operator failed: %w", err)
	}
	setupLog.Info("shutdown complete")
	return nil
}
