package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/service"
)

type resolveOptions struct {
	*rootOptions
	seqIDType  string
	fields     string
	useCache   string
	substitute string
}

func newResolveCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &resolveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <seq_id>...",
		Short: "Resolve sequence identifiers once and print the record",
		Long: `Resolve the given identifiers against the configured cache and storage
tiers. The identifiers are tried in order until one resolves.

Example:
  seqgate resolve --config seqgate.yaml NM_000001.3
  seqgate resolve --use-cache no "gi|12345" AB123456`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.seqIDType, "seq-id-type", "", "type tag or number applied to every id")
	cmd.Flags().StringVar(&opts.fields, "fields", "", "comma separated record fields (default all)")
	cmd.Flags().StringVar(&opts.useCache, "use-cache", "", "yes, no or prefer")
	cmd.Flags().StringVar(&opts.substitute, "acc-substitution", "", "default, limited or never")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *resolveOptions, ids []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := opts.request(ids)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.close()
	if opts.substitute == "" {
		req.AccSubstitution = a.substitute
	}

	outcome, err := a.service.Resolve(ctx, req)
	if err != nil {
		e := errors.From(err)
		return fmt.Errorf("%s (%s, status %d)", e.Error(), e.ToGRPCStatus().Code(), e.Status)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Result     string             `json:"result"`
		SeqID      string             `json:"seq_id"`
		Partial    bool               `json:"partial,omitempty"`
		QueryCount int                `json:"query_count"`
		Adjustment string             `json:"adjustment"`
		Record     model.BioseqRecord `json:"record"`
	}{
		Result:     outcome.Result.String(),
		SeqID:      outcome.SeqID.Text,
		Partial:    outcome.Partial,
		QueryCount: outcome.QueryCount,
		Adjustment: outcome.Adjustment.Outcome.String(),
		Record:     outcome.Record,
	})
}

func (o *resolveOptions) request(ids []string) (*service.ResolveRequest, error) {
	req := &service.ResolveRequest{}

	idType := model.SeqIDTypeUnknown
	if o.seqIDType != "" {
		t, ok := model.SeqIDTypeFromTag(o.seqIDType)
		if !ok {
			return nil, fmt.Errorf("unknown seq_id type %q", o.seqIDType)
		}
		idType = t
	}
	for _, id := range ids {
		req.Candidates = append(req.Candidates, model.CandidateID{Type: idType, Text: id})
	}

	var err error
	if req.Fields, err = model.ParseIncludeFlags(o.fields); err != nil {
		return nil, err
	}
	if req.CachePolicy, err = model.ParseCachePolicy(o.useCache); err != nil {
		return nil, err
	}
	if o.substitute != "" {
		if req.AccSubstitution, err = model.ParseAccSubstitution(o.substitute); err != nil {
			return nil, err
		}
	}
	return req, nil
}
