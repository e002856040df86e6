package discoverytest

import "strings"

// RootPlaceholder is replaced by the fixture server's base URL (with a
// trailing slash) when a document is served.
const RootPlaceholder = "{{ROOT}}"

// WithRoot returns doc with the root placeholder replaced by root.
func WithRoot(doc, root string) []byte {
	return []byte(strings.ReplaceAll(doc, RootPlaceholder, root))
}

// PlusV1 is a social API with path parameters, an enum and a body method.
const PlusV1 = `{
  "kind": "discovery#restDescription",
  "discoveryVersion": "v1",
  "id": "plus:v1",
  "name": "plus",
  "version": "v1",
  "title": "Plus API",
  "description": "The Plus API lets you access public activities.",
  "protocol": "rest",
  "rootUrl": "{{ROOT}}",
  "servicePath": "plus/v1/",
  "batchPath": "batch/plus/v1",
  "parameters": {
    "alt": {
      "type": "string",
      "description": "Data format for the response.",
      "default": "json",
      "enum": ["json"],
      "location": "query"
    },
    "fields": {
      "type": "string",
      "description": "Selector specifying which fields to include in a partial response.",
      "location": "query"
    },
    "key": {
      "type": "string",
      "description": "API key.",
      "location": "query"
    },
    "prettyPrint": {
      "type": "boolean",
      "description": "Returns response with indentations and line breaks.",
      "default": "true",
      "location": "query"
    },
    "userIp": {
      "type": "string",
      "description": "IP address of the site where the request originates.",
      "location": "query"
    }
  },
  "auth": {
    "oauth2": {
      "scopes": {
        "https://www.googleapis.com/auth/plus.me": {"description": "Know who you are"}
      }
    }
  },
  "schemas": {
    "Activity": {"id": "Activity", "type": "object"},
    "ActivityFeed": {"id": "ActivityFeed", "type": "object"},
    "Comment": {"id": "Comment", "type": "object"},
    "Person": {"id": "Person", "type": "object"}
  },
  "resources": {
    "activities": {
      "methods": {
        "list": {
          "id": "plus.activities.list",
          "path": "people/{userId}/activities/{collection}",
          "httpMethod": "GET",
          "description": "List all of the activities in the specified collection for a particular user.",
          "parameters": {
            "collection": {
              "type": "string",
              "description": "The collection of activities to list.",
              "required": true,
              "enum": ["public"],
              "location": "path"
            },
            "maxResults": {
              "type": "integer",
              "description": "The maximum number of activities to include in the response.",
              "default": "20",
              "format": "uint32",
              "minimum": "1",
              "maximum": "100",
              "location": "query"
            },
            "pageToken": {
              "type": "string",
              "description": "The continuation token.",
              "location": "query"
            },
            "userId": {
              "type": "string",
              "description": "The ID of the user to get activities for.",
              "required": true,
              "location": "path"
            }
          },
          "parameterOrder": ["userId", "collection"],
          "response": {"$ref": "ActivityFeed"},
          "scopes": ["https://www.googleapis.com/auth/plus.me"]
        },
        "get": {
          "id": "plus.activities.get",
          "path": "activities/{activityId}",
          "httpMethod": "GET",
          "parameters": {
            "activityId": {
              "type": "string",
              "required": true,
              "location": "path"
            }
          },
          "parameterOrder": ["activityId"],
          "response": {"$ref": "Activity"}
        }
      }
    },
    "comments": {
      "methods": {
        "insert": {
          "id": "plus.comments.insert",
          "path": "activities/{activityId}/comments",
          "httpMethod": "POST",
          "parameters": {
            "activityId": {
              "type": "string",
              "required": true,
              "location": "path"
            }
          },
          "parameterOrder": ["activityId"],
          "request": {"$ref": "Comment"},
          "response": {"$ref": "Comment"}
        }
      }
    },
    "people": {
      "methods": {
        "get": {
          "id": "plus.people.get",
          "path": "people/{userId}",
          "httpMethod": "GET",
          "parameters": {
            "userId": {
              "type": "string",
              "required": true,
              "location": "path"
            }
          },
          "parameterOrder": ["userId"],
          "response": {"$ref": "Person"}
        },
        "search": {
          "id": "plus.people.search",
          "path": "people",
          "httpMethod": "GET",
          "parameters": {
            "language": {
              "type": "string",
              "pattern": "[a-z]{2}(-[A-Z]{2})?",
              "location": "query"
            },
            "query": {
              "type": "string",
              "required": true,
              "location": "query"
            },
            "verified": {
              "type": "boolean",
              "location": "query"
            }
          },
          "parameterOrder": ["query"]
        }
      }
    }
  }
}`

// AnalyticsV3 has hyphenated query parameters and patterns.
const AnalyticsV3 = `{
  "kind": "discovery#restDescription",
  "id": "analytics:v3",
  "name": "analytics",
  "version": "v3",
  "title": "Analytics API",
  "rootUrl": "{{ROOT}}",
  "servicePath": "analytics/v3/",
  "parameters": {
    "alt": {
      "type": "string",
      "default": "json",
      "enum": ["atom", "json"],
      "location": "query"
    },
    "key": {
      "type": "string",
      "location": "query"
    }
  },
  "resources": {
    "data": {
      "resources": {
        "ga": {
          "methods": {
            "get": {
              "id": "analytics.data.ga.get",
              "path": "data/ga",
              "httpMethod": "GET",
              "parameters": {
                "dimensions": {
                  "type": "string",
                  "pattern": "(ga:.+)?",
                  "location": "query"
                },
                "end-date": {
                  "type": "string",
                  "required": true,
                  "pattern": "[0-9]{4}-[0-9]{2}-[0-9]{2}|today|yesterday|[0-9]+(daysAgo)",
                  "location": "query"
                },
                "ids": {
                  "type": "string",
                  "required": true,
                  "pattern": "ga:[0-9]+",
                  "location": "query"
                },
                "max-results": {
                  "type": "integer",
                  "format": "int32",
                  "location": "query"
                },
                "metrics": {
                  "type": "string",
                  "required": true,
                  "pattern": "ga:.+",
                  "location": "query"
                },
                "sort": {
                  "type": "string",
                  "repeated": true,
                  "location": "query"
                },
                "start-date": {
                  "type": "string",
                  "required": true,
                  "pattern": "[0-9]{4}-[0-9]{2}-[0-9]{2}|today|yesterday|[0-9]+(daysAgo)",
                  "location": "query"
                },
                "start-index": {
                  "type": "integer",
                  "format": "int32",
                  "location": "query"
                }
              },
              "parameterOrder": ["ids", "start-date", "end-date", "metrics"]
            }
          }
        }
      }
    },
    "management": {
      "resources": {
        "accounts": {
          "methods": {
            "list": {
              "id": "analytics.management.accounts.list",
              "path": "management/accounts",
              "httpMethod": "GET",
              "parameters": {
                "start-index": {
                  "type": "integer",
                  "location": "query"
                }
              }
            }
          }
        }
      }
    }
  }
}`

// PredictionV12 is the preferred prediction version of the fixture directory.
const PredictionV12 = `{
  "kind": "discovery#restDescription",
  "id": "prediction:v1.2",
  "name": "prediction",
  "version": "v1.2",
  "title": "Prediction API",
  "rootUrl": "{{ROOT}}",
  "servicePath": "prediction/v1.2/",
  "resources": {
    "training": {
      "methods": {
        "insert": {
          "id": "prediction.training.insert",
          "path": "training",
          "httpMethod": "POST",
          "parameters": {
            "data": {
              "type": "string",
              "location": "query"
            }
          },
          "request": {"$ref": "Training"},
          "response": {"$ref": "Training"}
        },
        "get": {
          "id": "prediction.training.get",
          "path": "training/{+data}",
          "httpMethod": "GET",
          "parameters": {
            "data": {
              "type": "string",
              "required": true,
              "location": "path"
            }
          },
          "parameterOrder": ["data"]
        }
      }
    }
  },
  "methods": {
    "predict": {
      "id": "prediction.predict",
      "path": "training/{data}/predict",
      "httpMethod": "POST",
      "parameters": {
        "data": {
          "type": "string",
          "required": true,
          "location": "path"
        }
      },
      "parameterOrder": ["data"]
    }
  }
}`

// PredictionV1 is a non-preferred prediction version.
const PredictionV1 = `{
  "kind": "discovery#restDescription",
  "id": "prediction:v1",
  "name": "prediction",
  "version": "v1",
  "title": "Prediction API",
  "baseUrl": "{{ROOT}}prediction/v1/",
  "resources": {
    "training": {
      "methods": {
        "insert": {
          "id": "prediction.training.insert",
          "path": "training",
          "httpMethod": "POST"
        }
      }
    }
  }
}`

// PredictionV13 is a newer but not preferred prediction version.
const PredictionV13 = `{
  "kind": "discovery#restDescription",
  "id": "prediction:v1.3",
  "name": "prediction",
  "version": "v1.3",
  "title": "Prediction API",
  "rootUrl": "{{ROOT}}",
  "servicePath": "prediction/v1.3/",
  "resources": {
    "training": {
      "methods": {
        "insert": {
          "id": "prediction.training.insert",
          "path": "training",
          "httpMethod": "POST"
        }
      }
    }
  }
}`

// MalformedV1 lacks a root and base URL.
const MalformedV1 = `{
  "kind": "discovery#restDescription",
  "name": "malformed",
  "version": "v1"
}`
