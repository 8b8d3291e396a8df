package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/policy"
)

// errEphemeralStore rejects administration of a store that dies with the
// process.
var errEphemeralStore = errors.New("policy commands need a shared store")

func openPolicyStore(cmd *cobra.Command, opts *rootOptions) (*policy.KVStore, func() error, error) {
	storeCfg, err := opts.loadStoreConfig()
	if err != nil {
		return nil, nil, err
	}
	if storeCfg.Backend == config.StoreMemory {
		return nil, nil, fmt.Errorf("%w: %s=%s keeps nothing after this command exits; set %s=%s, or seed serve with %s",
			errEphemeralStore, config.EnvStore, config.StoreMemory, config.EnvStore, config.StoreRedis, config.EnvPolicyDir)
	}
	store, closeStore, err := openStore(cmd.Context(), storeCfg)
	if err != nil {
		return nil, nil, err
	}
	return policy.NewKVStore(store), closeStore, nil
}

func newPolicyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Read and write permission policies in the store",
	}

	var tenant, user string
	var tenantDefault bool
	keyFor := func() (string, error) {
		switch {
		case tenantDefault && tenant != "":
			return policy.TenantDefaultKey(tenant), nil
		case tenant != "" && user != "":
			return policy.UserKey(tenant, user), nil
		default:
			return "", fmt.Errorf("need --tenant with --user or --default")
		}
	}
	cmd.PersistentFlags().StringVar(&tenant, "tenant", "", "tenant id")
	cmd.PersistentFlags().StringVar(&user, "user", "", "user id")
	cmd.PersistentFlags().BoolVar(&tenantDefault, "default", false, "address the tenant default policy")

	put := &cobra.Command{
		Use:   "put FILE",
		Short: "Store a JSON or YAML policy document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFor()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := policy.ParseAny(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			store, closeStore, err := openPolicyStore(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if err := store.Put(cmd.Context(), key, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print a stored policy document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := keyFor()
			if err != nil {
				return err
			}
			store, closeStore, err := openPolicyStore(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			p, err := store.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("no policy at %s", key)
			}
			doc, err := policy.Encode(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed DIR",
		Short: "Store every policy file under DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := policy.LoadDir(os.DirFS(args[0]))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			store, closeStore, err := openPolicyStore(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			if err := policy.Seed(cmd.Context(), store, docs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d policies\n", len(docs))
			return nil
		},
	}

	cmd.AddCommand(put, get, seed)
	return cmd
}
