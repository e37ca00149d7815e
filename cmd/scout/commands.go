package main

import (
	"fmt"

	"github.com/harrybrwn/scout/cmd"
	"github.com/harrybrwn/scout/finder"
	"github.com/harrybrwn/scout/link"
	"github.com/harrybrwn/scout/mirrors"
	"github.com/harrybrwn/scout/web"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newFindCmd(conf *cmd.Config) *cobra.Command {
	var comments bool
	c := &cobra.Command{
		Use:   "find <requirement>...",
		Short: "Print the download links found for each requirement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			s, err := newSession(ctx, conf)
			if err != nil {
				return err
			}
			defer s.Close()
			getter := newGetter(conf, s)
			defer getter.Close()

			f := &finder.Finder{
				IndexURLs:      conf.IndexURLs(),
				FindLinkURLs:   conf.FindLinks,
				NoIndex:        conf.NoIndex,
				UseMirrors:     conf.UseMirrors,
				Mirrors:        conf.Mirrors,
				MirrorHostname: conf.MirrorHostname,
				FollowRel:      conf.FollowRel,
				Getter:         getter,
				Resolver:       mirrors.NewResolver(nil),
				Logger:         log,
			}
			for _, req := range args {
				res, err := f.FindLinks(ctx, req)
				if err != nil {
					return errors.Wrapf(err, "could not find links for %s", req)
				}
				for dir, entries := range res.Listings {
					log.WithFields(logrus.Fields{"dir": dir, "entries": len(entries)}).Debug("directory listing")
				}
				for _, l := range res.Links {
					if comments && l.Comment != "" {
						fmt.Fprintf(out, "%s\t%s\n", l, l.Comment)
					} else {
						fmt.Fprintln(out, l)
					}
				}
			}
			log.WithFields(logrus.Fields{
				"fetched": getter.Fetched(),
				"done":    len(getter.Done()),
			}).Debug("finished")
			return nil
		},
	}
	c.Flags().BoolVar(&comments, "comments", comments, "print the anchor text next to each link")
	return c
}

func newListCmd(conf *cmd.Config) *cobra.Command {
	var rel bool
	c := &cobra.Command{
		Use:   "list <url>",
		Short: "List the links on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			s, err := newSession(ctx, conf)
			if err != nil {
				return err
			}
			defer s.Close()
			l, err := link.Parse(args[0])
			if err != nil {
				return err
			}
			page, err := web.GetPage(ctx, l, "", s.cache, s.fetcher)
			if err != nil {
				return err
			}
			if page == nil {
				return errors.Errorf("%s is not an html page", l)
			}
			links := page.Links()
			if rel {
				links = page.RelLinks()
			}
			for _, l := range links {
				fmt.Fprintln(out, l)
			}
			fmt.Fprintln(out, len(links), "links found")
			return nil
		},
	}
	c.Flags().BoolVar(&rel, "rel", rel, "only list homepage and download links")
	return c
}

func newMirrorsCmd(conf *cmd.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "mirrors [hostname]",
		Short: "Discover the package index mirrors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, out := conf.MirrorHostname, cmd.OutOrStdout()
			if len(args) > 0 {
				host = args[0]
			}
			hosts, err := mirrors.NewResolver(nil).Get(cmd.Context(), host)
			if err != nil {
				return err
			}
			for _, u := range mirrors.URLs(hosts) {
				fmt.Fprintln(out, u)
			}
			return nil
		},
	}
}
