package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/httpapi"
	"github.com/shayne-snap/llmvram/internal/logging"
)

func newServeCmd(o *options) *cobra.Command {
	var (
		addr        string
		corsOrigins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the VRAM table, estimates and catalog as a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(o.logLevel, false)
			db, err := o.loadDB(cmd.Context())
			if err != nil {
				return err
			}
			gpu, err := o.gpuMemoryGB()
			if err != nil {
				return err
			}
			specs, err := o.detect()
			if err != nil {
				log.Warn().Err(err).Msg("hardware detection failed, /api/v1/system disabled")
				specs = nil
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h := httpapi.NewMux(db, httpapi.Options{
				GPUMemory:   gpu,
				Lang:        o.language(),
				CORSOrigins: corsOrigins,
				Specs:       specs,
				Registry:    reg,
				Logger:      &logger,
			})
			return httpapi.ListenAndServe(ctx, addr, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, `Allowed CORS origins ("*" for any; default CORS disabled)`)
	return cmd
}
