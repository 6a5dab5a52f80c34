package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/dashboard-backend/infra/cloudrun"
	"github.com/GregMSThompson/dashboard-backend/infra/docker"
	"github.com/GregMSThompson/dashboard-backend/infra/firestore"
	"github.com/GregMSThompson/dashboard-backend/infra/identity"
	"github.com/GregMSThompson/dashboard-backend/infra/provider"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx, prov)
		if err != nil {
			return err
		}

		// enable firestore and create the database holding preference documents
		db, err := firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx, prov)
		if err != nil {
			return err
		}

		sa, err := cloudrun.SetupCloudRun(ctx, prov, ident, db, repo)
		if err != nil {
			return err
		}

		ctx.Export("apiServiceAccount", sa.Email)
		return nil
	})
}
