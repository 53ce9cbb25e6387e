package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/feedreach-backend/internal/db"
	"github.com/ignatzorin/feedreach-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/realtime"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Применить новые миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.RunMigrations(cmd.Context(), conn, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "новых миграций нет")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "применена %s\n", name)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Показать состояние миграций",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			states, err := db.Status(cmd.Context(), conn, cfg.MigrationsPath)
			if err != nil {
				return err
			}
			for _, s := range states {
				if s.AppliedAt == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s ожидает\n", s.Name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", s.Name, s.AppliedAt.Format(time.RFC3339))
			}
			return nil
		},
	})
	return cmd
}

func promoteCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Выдать или снять права администратора",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			users := repository.NewUserRepository(conn)
			admin := service.NewAdminService(users, persistence.NewDonationRepositoryAdapter(conn), nil)
			if err := admin.Promote(cmd.Context(), args[0], !revoke); err != nil {
				return err
			}

			action := "назначен администратором"
			if revoke {
				action = "лишён прав администратора"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], action)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Снять права вместо выдачи")
	return cmd
}

func broadcastCmd() *cobra.Command {
	var title, message, kind, link string

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Отправить уведомление всем пользователям",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			// Через NATS рассылка сразу дойдёт до открытых соединений на серверах.
			broker := realtime.NewBroker()
			if cfg.NATSURL != "" {
				bridge, err := realtime.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, broker)
				if err != nil {
					logger.Component("feedreachctl").WithError(err).Warn("NATS недоступен, уведомление появится после перезагрузки списка")
				} else {
					defer bridge.Close()
				}
			}

			notifications := service.NewNotificationService(repository.NewNotificationRepository(conn), broker)
			admin := service.NewAdminService(repository.NewUserRepository(conn), persistence.NewDonationRepositoryAdapter(conn), notifications)

			n, err := admin.Broadcast(cmd.Context(), title, message, kind, link)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "уведомление %s отправлено\n", n.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Заголовок")
	cmd.Flags().StringVar(&message, "message", "", "Текст")
	cmd.Flags().StringVar(&kind, "type", models.NotificationInfo, "Тип: info, success, warning, error")
	cmd.Flags().StringVar(&link, "link", "", "Ссылка внутри приложения")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func seedCmd() *cobra.Command {
	var donors, ngos, donations int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Заполнить базу демо-данными",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if cfg.Env == "production" {
				return fmt.Errorf("seed запрещён в production")
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			svc := service.NewSeedService(repository.NewUserRepository(conn), persistence.NewDonationRepositoryAdapter(conn), seed)
			result, err := svc.Seed(cmd.Context(), donors, ngos, donations)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "доноров: %d, НКО: %d, пожертвований: %d (пароль %s)\n",
				result.Donors, result.NGOs, result.Donations, service.DemoPassword)
			return nil
		},
	}
	cmd.Flags().IntVar(&donors, "donors", 5, "Число доноров")
	cmd.Flags().IntVar(&ngos, "ngos", 3, "Число НКО")
	cmd.Flags().IntVar(&donations, "donations", 20, "Число пожертвований")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Зерно генератора, 0 означает текущее время")
	return cmd
}
