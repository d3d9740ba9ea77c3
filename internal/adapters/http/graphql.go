package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/dira-ar/dira/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
			"alt": &graphql.Field{Type: graphql.Float},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"distance":    &graphql.Field{Type: graphql.Float},
		},
	})

	visiblePOIType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VisiblePOI",
		Fields: graphql.Fields{
			"name":            &graphql.Field{Type: graphql.String},
			"bearing_degrees": &graphql.Field{Type: graphql.Float},
			"distance_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	celestialPOIType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CelestialPOI",
		Fields: graphql.Fields{
			"poi":                     &graphql.Field{Type: waypointType},
			"bearing_degrees":         &graphql.Field{Type: graphql.Float},
			"distance_meters":         &graphql.Field{Type: graphql.Float},
			"elevation_angle_degrees": &graphql.Field{Type: graphql.Float},
			"visual_height":           &graphql.Field{Type: graphql.Float},
		},
	})

	turnGuidanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TurnGuidance",
		Fields: graphql.Fields{
			"text":             &graphql.Field{Type: graphql.String},
			"alignment_status": &graphql.Field{Type: graphql.String},
			"turn_degrees":     &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"waypointsNearby": &graphql.Field{
				Type:        graphql.NewList(waypointType),
				Description: "Find waypoints near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Waypoints.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"searchWaypoints": &graphql.Field{
				Type:        graphql.NewList(waypointType),
				Description: "Search waypoints by name (partial matching)",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					limit := p.Args["limit"].(int)
					return deps.Waypoints.Search(p.Context, q, limit)
				},
			},
			"waypoint": &graphql.Field{
				Type:        waypointType,
				Description: "Get a waypoint by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Waypoints.GetByID(p.Context, id)
				},
			},
			"poiSearch": &graphql.Field{
				Type:        celestialPOIType,
				Description: "Find a waypoint by name and project it into the observer's sky",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					observer := domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lon: p.Args["lon"].(float64),
					}
					return deps.Celestial.Search(p.Context, q, observer)
				},
			},
			"visiblePois": &graphql.Field{
				Type:        graphql.NewList(visiblePOIType),
				Description: "Waypoints inside the observer's heading cone with terrain line of sight",
				Args: graphql.FieldConfigArgument{
					"lat":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"heading": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fov":     &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 60.0},
					"radius":  &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 2000.0},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					observer := domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lon: p.Args["lon"].(float64),
					}
					heading := p.Args["heading"].(float64)
					fov := p.Args["fov"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Celestial.VisibleCone(p.Context, observer, heading, fov, radius, limit)
				},
			},
			"turnGuidance": &graphql.Field{
				Type:        turnGuidanceType,
				Description: "Spoken-style directive for rotating toward a POI",
				Args: graphql.FieldConfigArgument{
					"poi_name":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"user_heading":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"target_bearing":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"distance_meters": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name := p.Args["poi_name"].(string)
					heading := p.Args["user_heading"].(float64)
					bearing := p.Args["target_bearing"].(float64)
					dist := p.Args["distance_meters"].(float64)
					return deps.Guidance.TurnGuidance(p.Context, name, heading, bearing, dist), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
