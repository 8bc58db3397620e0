package cmd

import (
	"errors"
	"fmt"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/config"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var revokeUser string

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Delete every live session of a user",
	Long: `revoke deletes all sessions recorded for --user in the shared session
store. Use it after removing or rescoping a user when open sessions must end
immediately rather than at expiry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if revokeUser == "" {
			return errors.New("--user is required")
		}

		file, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg, err := file.EngineConfig()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		rdb := redis.NewUniversalClient(file.RedisOptions())
		defer rdb.Close()

		engine, err := gateAuth.New().
			WithConfig(cfg).
			WithUsers(file.UserRecords()).
			WithRedis(rdb).
			WithLogger(newLogger(cmd).WithPrefix("gateAuth")).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build engine: %w", err)
		}
		defer engine.Close()

		n, err := engine.Sessions().RevokeIdentity(cmd.Context(), revokeUser)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s) for %s\n", n, revokeUser)
		return err
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().StringVarP(&revokeUser, "user", "u", "", "Username whose sessions are deleted")
}
