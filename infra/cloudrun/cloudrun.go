package cloudrun

import (
	"github.com/pulumi/pulumi-docker/sdk/v4/go/docker"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/cloudrun"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/serviceaccount"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/GregMSThompson/dashboard-backend/infra/common"
)

const (
	defaultPreferencesCollection = "dashboard_preferences"
	containerPort                = 8080
	healthPath                   = "/healthz"
)

// settings collects the gcp and cloudrun stack config used by the service.
type settings struct {
	projectID   string
	region      string
	minScale    string
	maxScale    string
	cpu         string
	memory      string
	concurrency int
	timeout     int
	logLevel    string
	collection  string
}

func loadSettings(ctx *pulumi.Context) settings {
	gcpCfg := config.New(ctx, "gcp")
	crCfg := config.New(ctx, "cloudrun")

	s := settings{
		projectID:   gcpCfg.Require("project"),
		region:      gcpCfg.Require("region"),
		minScale:    crCfg.Require("minScale"),
		maxScale:    crCfg.Require("maxScale"),
		cpu:         crCfg.Require("cpu"),
		memory:      crCfg.Require("memory"),
		concurrency: crCfg.RequireInt("concurrency"),
		timeout:     crCfg.RequireInt("timeout"),
		logLevel:    crCfg.Get("logLevel"),
		collection:  crCfg.Get("preferencesCollection"),
	}
	if s.collection == "" {
		s.collection = defaultPreferencesCollection
	}
	return s
}

// SetupCloudRun builds the API image and deploys it behind Identity Platform.
// res are resources the image must wait for (identity config, database, registry).
func SetupCloudRun(ctx *pulumi.Context, prov *gcp.Provider, res ...pulumi.Resource) (*serviceaccount.Account, error) {
	s := loadSettings(ctx)

	img, err := buildApiImage(ctx, s, res...)
	if err != nil {
		return nil, err
	}

	srv, err := projects.NewService(ctx, "cloudRunService", &projects.ServiceArgs{
		Service: pulumi.String("run.googleapis.com"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	apiSA, err := createServiceAccount(ctx, s, prov)
	if err != nil {
		return nil, err
	}

	svc, err := createCloudRunService(ctx, s, img, apiSA, prov, srv)
	if err != nil {
		return nil, err
	}

	if err := allowInvokers(ctx, s, svc, prov); err != nil {
		return nil, err
	}

	ctx.Export("apiUrl", svc.Statuses.Index(pulumi.Int(0)).Url())
	return apiSA, nil
}

func buildApiImage(ctx *pulumi.Context, s settings, res ...pulumi.Resource) (*docker.Image, error) {
	tag, err := common.GenerateHash("../")
	if err != nil {
		return nil, err
	}

	return docker.NewImage(ctx, "apiImage", &docker.ImageArgs{
		Build: docker.DockerBuildArgs{
			Platform:   pulumi.String("linux/amd64"),
			Context:    pulumi.String(".."),                    // build from repo root
			Dockerfile: pulumi.String("../cmd/api/Dockerfile"), // Dockerfile path relative to repo root
		},
		ImageName: pulumi.Sprintf("%s-docker.pkg.dev/%s/api/dashboard-api:%s", s.region, s.projectID, tag),
	},
		pulumi.DependsOn(res),
	)
}

// createServiceAccount gives the API read/write access to Firestore and nothing else.
func createServiceAccount(ctx *pulumi.Context, s settings, prov *gcp.Provider) (*serviceaccount.Account, error) {
	apiSA, err := serviceaccount.NewAccount(ctx, "apiServiceAccount", &serviceaccount.AccountArgs{
		AccountId:   pulumi.String("dashboard-api"),
		DisplayName: pulumi.String("Dashboard API Service Account"),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	_, err = projects.NewIAMMember(ctx, "firestoreAccess", &projects.IAMMemberArgs{
		Role:    pulumi.String("roles/datastore.user"),
		Member:  pulumi.Sprintf("serviceAccount:%s", apiSA.Email),
		Project: pulumi.String(s.projectID),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	return apiSA, nil
}

func serviceEnv(s settings) cloudrun.ServiceTemplateSpecContainerEnvArray {
	vars := []struct{ name, value string }{
		{"PROJECTID", s.projectID},
		{"LOGLEVEL", s.logLevel},
		{"PREFERENCESCOLLECTION", s.collection},
	}

	env := make(cloudrun.ServiceTemplateSpecContainerEnvArray, 0, len(vars))
	for _, v := range vars {
		if v.value == "" {
			continue
		}
		env = append(env, &cloudrun.ServiceTemplateSpecContainerEnvArgs{
			Name:  pulumi.String(v.name),
			Value: pulumi.String(v.value),
		})
	}
	return env
}

func createCloudRunService(ctx *pulumi.Context,
	s settings,
	img *docker.Image,
	apiSA *serviceaccount.Account,
	prov *gcp.Provider,
	res ...pulumi.Resource) (*cloudrun.Service, error) {
	return cloudrun.NewService(ctx, "apiService", &cloudrun.ServiceArgs{
		Location: pulumi.String(s.region),

		Template: &cloudrun.ServiceTemplateArgs{
			Metadata: &cloudrun.ServiceTemplateMetadataArgs{
				Annotations: pulumi.StringMap{
					// Enable Identity Platform (Firebase) authentication
					"run.googleapis.com/launch-stage":      pulumi.String("BETA"),
					"run.googleapis.com/identity-provider": pulumi.String("firebase"),

					"autoscaling.knative.dev/minScale": pulumi.String(s.minScale),
					"autoscaling.knative.dev/maxScale": pulumi.String(s.maxScale),

					// Allow throttling when idle (reduces cost)
					"run.googleapis.com/cpu-throttling": pulumi.String("true"),
				},
			},

			Spec: &cloudrun.ServiceTemplateSpecArgs{
				ServiceAccountName:   apiSA.Email,
				TimeoutSeconds:       pulumi.Int(s.timeout),
				ContainerConcurrency: pulumi.Int(s.concurrency),

				Containers: cloudrun.ServiceTemplateSpecContainerArray{
					&cloudrun.ServiceTemplateSpecContainerArgs{
						Image: img.ImageName,
						Ports: cloudrun.ServiceTemplateSpecContainerPortArray{
							&cloudrun.ServiceTemplateSpecContainerPortArgs{
								ContainerPort: pulumi.Int(containerPort),
							},
						},
						Resources: &cloudrun.ServiceTemplateSpecContainerResourcesArgs{
							Limits: pulumi.StringMap{
								"cpu":    pulumi.String(s.cpu),
								"memory": pulumi.String(s.memory),
							},
						},
						LivenessProbe: &cloudrun.ServiceTemplateSpecContainerLivenessProbeArgs{
							HttpGet: &cloudrun.ServiceTemplateSpecContainerLivenessProbeHttpGetArgs{
								Path: pulumi.String(healthPath),
							},
						},
						Envs: serviceEnv(s),
					},
				},
			},
		},
	},
		pulumi.Provider(prov),
		pulumi.DependsOn(res),
	)
}

// allowInvokers lets any caller reach the service; requests are then authenticated
// by Identity Platform and the API's own token check.
func allowInvokers(ctx *pulumi.Context, s settings, svc *cloudrun.Service, prov *gcp.Provider) error {
	_, err := cloudrun.NewIamMember(ctx, "publicInvoker", &cloudrun.IamMemberArgs{
		Service:  svc.Name,
		Location: pulumi.String(s.region),
		Role:     pulumi.String("roles/run.invoker"),
		Member:   pulumi.String("allUsers"),
	},
		pulumi.Provider(prov),
	)
	return err
}
